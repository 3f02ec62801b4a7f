package debugger_test

import (
	"bytes"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/strandsim/debugger"
	"github.com/sarchlab/strandsim/emu"
	"github.com/sarchlab/strandsim/insts"
)

var _ = Describe("Debugger", func() {
	var (
		core *emu.Core
		dbg  *debugger.Debugger
		out  *bytes.Buffer
	)

	BeforeEach(func() {
		logger := logrus.New()
		logger.SetOutput(io.Discard)

		core = emu.NewCore(
			emu.WithMemorySize(0x1000),
			emu.WithLogger(logger),
			emu.WithStdout(io.Discard))
		words := []uint32{
			insts.EncodeB(insts.OpCopy, insts.ImmShapeScalar, 1, 0, 5, 0),
			insts.EncodeA(insts.OpAdd, insts.ShapeScalarScalar, 2, 1, 1, 0),
			insts.EncodeHalt(),
		}
		for i, w := range words {
			Expect(core.Memory().Write32(uint32(i*4), w)).To(Succeed())
		}

		out = &bytes.Buffer{}
		dbg = debugger.New(core,
			debugger.WithOutput(out),
			debugger.WithLogger(logger),
			debugger.WithQuantum(10, 5))
	})

	It("should stop at a breakpoint and step past it", func() {
		Expect(dbg.Execute("break 0x4")).To(Succeed())
		Expect(dbg.Execute("resume")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("strand 0 pc 00000004\n"))
		Expect(core.ScalarRegister(2)).To(Equal(uint32(0)))

		out.Reset()
		Expect(dbg.Execute("step")).To(Succeed())
		Expect(out.String()).To(Equal("strand 0 pc 00000008\n"))
		Expect(core.ScalarRegister(2)).To(Equal(uint32(10)))

		out.Reset()
		Expect(dbg.Execute("resume")).To(Succeed())
		Expect(out.String()).To(HaveSuffix("halted\n"))
	})

	It("should list and delete breakpoints", func() {
		Expect(dbg.Execute("set-breakpoint 8")).To(Succeed())
		Expect(dbg.Execute("break 0x4")).To(Succeed())
		Expect(dbg.Execute("breakpoints")).To(Succeed())
		Expect(out.String()).To(Equal("breakpoints:\n 00000004\n 00000008\n"))

		Expect(dbg.Execute("delete 4")).To(Succeed())
		Expect(core.Breakpoints()).To(Equal([]uint32{8}))
		Expect(dbg.Execute("delete 4")).To(MatchError(emu.ErrNoBreakpoint))
	})

	It("should select strands", func() {
		Expect(dbg.Execute("strand 2")).To(Succeed())
		Expect(core.CurrentStrand()).To(Equal(2))
		Expect(out.String()).To(Equal("current strand is 2\n"))

		Expect(dbg.Execute("strand 4")).To(MatchError(emu.ErrInvalidStrand))
		Expect(core.CurrentStrand()).To(Equal(2))
	})

	It("should print registers of the current strand", func() {
		core.Strand(1).RegFile().S[3] = 0xabcd
		Expect(dbg.Execute("strand 1")).To(Succeed())
		out.Reset()

		Expect(dbg.Execute("regs")).To(Succeed())
		Expect(out.String()).To(HavePrefix("REGISTERS (strand 1)"))
		Expect(out.String()).To(ContainSubstring("s3 0000abcd"))
	})

	It("should dump memory as hex and text", func() {
		Expect(core.Memory().WriteBytes(0x100, []byte("Hi there"))).To(Succeed())

		Expect(dbg.Execute("mem 0x100 16")).To(Succeed())
		Expect(out.String()).To(Equal("00000100    " +
			"48 69 20 74 68 65 72 65 00 00 00 00 00 00 00 00 " +
			"    Hi.there........\n"))
	})

	It("should stop a dump at the requested length", func() {
		Expect(core.Memory().WriteBytes(0xffc, []byte("tail"))).To(Succeed())

		Expect(dbg.Execute("mem 0xffc 4")).To(Succeed())
		Expect(out.String()).To(Equal("00000ffc    " +
			"74 61 69 6c " + strings.Repeat("   ", 12) +
			"    tail\n"))
	})

	It("should reject a memory range past the end", func() {
		Expect(dbg.Execute("mem 0xff8 16")).To(MatchError(emu.ErrAccessViolation))
	})

	It("should deliver interrupts", func() {
		Expect(dbg.Execute("interrupt 0")).To(Succeed())
		Expect(core.Strand(0).FaultReason()).To(Equal(emu.FaultInterrupt))
		Expect(dbg.Execute("interrupt 9")).To(MatchError(emu.ErrInvalidStrand))
	})

	DescribeTable("malformed commands",
		func(line string, expected error) {
			Expect(dbg.Execute(line)).To(MatchError(expected))
		},
		Entry("unknown", "frobnicate", debugger.ErrUnknownCommand),
		Entry("missing address", "break", debugger.ErrBadArgument),
		Entry("extra argument", "step 1", debugger.ErrBadArgument),
		Entry("bad number", "break 0xzz", debugger.ErrBadArgument),
		Entry("unaligned breakpoint", "break 2", emu.ErrInvalidBreakpoint),
	)

	It("should ignore blank lines", func() {
		Expect(dbg.Execute("   ")).To(Succeed())
		Expect(out.String()).To(BeEmpty())
	})

	It("should stop resuming after the quantum limit", func() {
		Expect(core.Memory().Write32(8, insts.EncodeBranch(insts.BranchAlways, 0, -4))).To(Succeed())

		Expect(dbg.Execute("resume")).To(Succeed())
		Expect(out.String()).To(Equal("running...\nstopped\n"))
		Expect(core.InstructionCount()).To(Equal(uint64(50)))
	})

	Describe("Run", func() {
		It("should report rejected commands and stop at quit", func() {
			script := "bogus\nbreak 4\nresume\nquit\nstep\n"

			Expect(dbg.Run(strings.NewReader(script))).To(Succeed())
			Expect(out.String()).To(ContainSubstring("unknown command: bogus\n"))
			Expect(out.String()).To(ContainSubstring("strand 0 pc 00000004\n"))
			Expect(core.PC()).To(Equal(uint32(4)))
		})

		It("should print a prompt before each command", func() {
			dbg = debugger.New(core, debugger.WithOutput(out), debugger.WithPrompt(true))

			Expect(dbg.Run(strings.NewReader("help\n"))).To(Succeed())
			Expect(out.String()).To(HavePrefix(debugger.Prompt + "available commands:\n"))
			Expect(out.String()).To(ContainSubstring("  mem <addr> <len>\n"))
			Expect(out.String()).NotTo(ContainSubstring("read-memory"))
			Expect(out.String()).To(HaveSuffix(debugger.Prompt))
		})
	})
})
