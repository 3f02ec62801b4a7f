package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/strandsim/emu"
	"github.com/sarchlab/strandsim/insts"
)

var _ = Describe("Breakpoints", func() {
	var (
		core *emu.Core
		rec  *recorder
		add  uint32
	)

	countWrites := func(reg uint8) int {
		n := 0
		for _, ev := range rec.events {
			if ev.Kind == emu.EventScalarWriteback && ev.Register == reg {
				n++
			}
		}
		return n
	}

	BeforeEach(func() {
		core = newTestCore()
		rec = &recorder{}
		core.AcceptHook(rec)

		add = insts.EncodeA(insts.OpAdd, insts.ShapeScalarScalar, 2, 1, 1, 0)
		loadWords(core, 0,
			insts.EncodeB(insts.OpCopy, insts.ImmShapeScalar, 1, 0, 7, 0),
			add,
			insts.EncodeHalt())
	})

	It("should restore the original word when cleared", func() {
		Expect(core.SetBreakpoint(4)).To(Succeed())
		Expect(core.Memory().Read32(4)).To(Equal(insts.BreakpointWord))

		Expect(core.ClearBreakpoint(4)).To(Succeed())
		Expect(core.Memory().Read32(4)).To(Equal(add))
		Expect(core.Breakpoints()).To(BeEmpty())
	})

	It("should reject duplicate, missing and invalid breakpoints", func() {
		Expect(core.SetBreakpoint(4)).To(Succeed())
		Expect(core.SetBreakpoint(4)).To(MatchError(emu.ErrBreakpointExists))
		Expect(core.ClearBreakpoint(8)).To(MatchError(emu.ErrNoBreakpoint))
		Expect(core.SetBreakpoint(6)).To(MatchError(emu.ErrInvalidBreakpoint))
		Expect(core.SetBreakpoint(testMemorySize)).To(MatchError(emu.ErrInvalidBreakpoint))

		Expect(core.Breakpoints()).To(Equal([]uint32{4}))
		Expect(core.Memory().Read32(8)).To(Equal(insts.EncodeHalt()))
	})

	It("should list breakpoints in address order", func() {
		Expect(core.SetBreakpoint(8)).To(Succeed())
		Expect(core.SetBreakpoint(0)).To(Succeed())

		Expect(core.Breakpoints()).To(Equal([]uint32{0, 8}))
	})

	It("should stop before the instruction runs", func() {
		Expect(core.SetBreakpoint(4)).To(Succeed())

		Expect(core.RunQuantum(100)).To(Equal(emu.StopBreakpoint))
		Expect(core.PC()).To(Equal(uint32(4)))
		Expect(core.ScalarRegister(1)).To(Equal(uint32(7)))
		Expect(core.ScalarRegister(2)).To(Equal(uint32(0)))
		Expect(core.InstructionCount()).To(Equal(uint64(1)))
	})

	It("should execute the original once when stepping off", func() {
		Expect(core.SetBreakpoint(4)).To(Succeed())
		Expect(core.RunQuantum(100)).To(Equal(emu.StopBreakpoint))

		Expect(core.SingleStep()).To(Equal(emu.StopCompleted))
		Expect(core.ScalarRegister(2)).To(Equal(uint32(14)))
		Expect(core.PC()).To(Equal(uint32(8)))

		Expect(core.RunQuantum(100)).To(Equal(emu.StopHalted))
		Expect(countWrites(2)).To(Equal(1))
		Expect(core.Memory().Read32(4)).To(Equal(insts.BreakpointWord))
	})

	It("should not trigger again when resuming", func() {
		Expect(core.SetBreakpoint(4)).To(Succeed())
		Expect(core.RunQuantum(100)).To(Equal(emu.StopBreakpoint))

		Expect(core.RunQuantum(100)).To(Equal(emu.StopHalted))
		Expect(core.ScalarRegister(2)).To(Equal(uint32(14)))
		Expect(countWrites(2)).To(Equal(1))
		Expect(core.Err()).NotTo(HaveOccurred())
	})

	It("should trigger again on the next pass", func() {
		// s1 counts down from 2, looping back over the breakpoint.
		loadWords(core, 0,
			insts.EncodeB(insts.OpCopy, insts.ImmShapeScalar, 1, 0, 2, 0),
			insts.EncodeB(insts.OpSub, insts.ImmShapeScalar, 1, 1, 1, 0),
			insts.EncodeBranch(insts.BranchNotZero, 1, -8),
			insts.EncodeHalt())
		Expect(core.SetBreakpoint(4)).To(Succeed())

		Expect(core.RunQuantum(100)).To(Equal(emu.StopBreakpoint))
		Expect(core.RunQuantum(100)).To(Equal(emu.StopBreakpoint))
		Expect(core.ScalarRegister(1)).To(Equal(uint32(1)))
		Expect(core.RunQuantum(100)).To(Equal(emu.StopHalted))
		Expect(core.ScalarRegister(1)).To(Equal(uint32(0)))
	})

	It("should stop on the strand that hit it", func() {
		loadWords(core, 0x100,
			insts.EncodeB(insts.OpCopy, insts.ImmShapeScalar, 3, 0, 1, 0),
			insts.EncodeB(insts.OpCopy, insts.ImmShapeScalar, 3, 0, 2, 0))
		loadWords(core, 0,
			insts.EncodeB(insts.OpCopy, insts.ImmShapeScalar, 1, 0, 3, 0),
			insts.EncodeSetControl(emu.CRStrandEnable, 1),
			insts.EncodeBranch(insts.BranchAlways, 0, -4))
		core.Strand(1).RegFile().PC = 0x100
		Expect(core.SetBreakpoint(0x104)).To(Succeed())

		Expect(core.RunQuantum(100)).To(Equal(emu.StopBreakpoint))
		Expect(core.CurrentStrand()).To(Equal(1))
		Expect(core.PC()).To(Equal(uint32(0x104)))
		Expect(core.ScalarRegister(3)).To(Equal(uint32(1)))
	})
})
