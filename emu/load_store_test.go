package emu_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/strandsim/emu"
	"github.com/sarchlab/strandsim/insts"
)

var _ = Describe("LoadStoreUnit", func() {
	var (
		core   *emu.Core
		regs   *emu.RegFile
		memory *emu.Memory
		rec    *recorder
	)

	BeforeEach(func() {
		core = newTestCore()
		regs = core.Strand(0).RegFile()
		memory = core.Memory()
		rec = &recorder{}
		core.AcceptHook(rec)
	})

	Context("scalar accesses", func() {
		BeforeEach(func() {
			regs.S[1] = 0x1000
			Expect(memory.Write32(0x1000, 0x8081f2f3)).To(Succeed())
		})

		DescribeTable("loads",
			func(access insts.Access, offset int32, expected uint32) {
				loadWords(core, 0, insts.EncodeLoad(access, 2, 1, offset))
				core.SingleStep()
				Expect(regs.S[2]).To(Equal(expected))
			},
			Entry("byte", insts.AccessByte, int32(0), uint32(0xf3)),
			Entry("signed byte", insts.AccessByteSigned, int32(3), uint32(0xffffff80)),
			Entry("short", insts.AccessShort, int32(2), uint32(0x8081)),
			Entry("signed short", insts.AccessShortSigned, int32(0), uint32(0xfffff2f3)),
			Entry("word", insts.AccessWord, int32(0), uint32(0x8081f2f3)),
		)

		It("should store a byte and report its byte lane", func() {
			regs.S[2] = 0x12345678
			loadWords(core, 0, insts.EncodeStore(insts.AccessByte, 2, 1, 5))
			core.SingleStep()

			Expect(memory.Read8(0x1005)).To(Equal(uint8(0x78)))
			Expect(rec.events).To(HaveLen(1))

			ev := rec.events[0]
			Expect(ev.Kind).To(Equal(emu.EventMemoryStore))
			Expect(ev.Address).To(Equal(uint32(0x1000)))
			Expect(ev.Mask).To(Equal(uint64(1) << 58))
			Expect(ev.LineByte(5)).To(Equal(uint8(0x78)))
		})

		It("should store a word and report it in the matching lane", func() {
			regs.S[2] = 0xcafebabe
			loadWords(core, 0, insts.EncodeStore(insts.AccessWord, 2, 1, 8))
			core.SingleStep()

			Expect(memory.Read32(0x1008)).To(Equal(uint32(0xcafebabe)))
			ev := rec.events[0]
			Expect(ev.Mask).To(Equal(uint64(0xf) << 52))
			Expect(ev.Values[13]).To(Equal(uint32(0xcafebabe)))
		})

		It("should raise a fault on a misaligned word load", func() {
			regs.S[1] = 0x1002
			regs.S[5] = 0x400
			loadWords(core, 0,
				insts.EncodeSetControl(emu.CRFaultHandler, 5),
				insts.EncodeLoad(insts.AccessWord, 2, 1, 0))

			core.SingleStep()
			core.SingleStep()

			st := core.Strand(0)
			Expect(regs.PC).To(Equal(uint32(0x400)))
			Expect(st.FaultPC()).To(Equal(uint32(4)))
			Expect(st.FaultReason()).To(Equal(emu.FaultInvalidAccess))
			Expect(core.Halted()).To(BeFalse())
		})

		It("should halt on an out of range access", func() {
			regs.S[1] = testMemorySize
			loadWords(core, 0, insts.EncodeLoad(insts.AccessWord, 2, 1, 0))

			Expect(core.RunQuantum(10)).To(Equal(emu.StopHalted))
			Expect(core.Err()).To(MatchError(emu.ErrAccessViolation))
			Expect(core.RunQuantum(10)).To(Equal(emu.StopHalted))
		})
	})

	Context("device window", func() {
		It("should route word accesses to the console device", func() {
			out := &bytes.Buffer{}
			core = newTestCore(emu.WithStdout(out))
			regs = core.Strand(0).RegFile()
			rec = &recorder{}
			core.AcceptHook(rec)

			regs.S[1] = emu.ConsoleAddress
			regs.S[2] = 'A'
			loadWords(core, 0,
				insts.EncodeStore(insts.AccessWord, 2, 1, 0),
				insts.EncodeLoad(insts.AccessWord, 3, 1, 4),
				insts.EncodeLoad(insts.AccessWord, 4, 1, 8))

			core.SingleStep()
			core.SingleStep()
			core.SingleStep()

			Expect(out.String()).To(Equal("A"))
			Expect(regs.S[3]).To(Equal(uint32(0x12345678)))
			Expect(regs.S[4]).To(Equal(uint32(0xabcdef9b)))
			Expect(rec.events).To(HaveLen(2))
			Expect(rec.events[0].Kind).To(Equal(emu.EventScalarWriteback))
		})
	})

	Context("block vector accesses", func() {
		It("should place lane 15 at the lowest address", func() {
			for i := uint32(0); i < 16; i++ {
				Expect(memory.Write32(0x2000+i*4, 100+i)).To(Succeed())
			}
			regs.S[1] = 0x2000
			loadWords(core, 0, insts.EncodeLoad(insts.AccessBlock, 3, 1, 0))
			core.SingleStep()

			for lane := 0; lane < 16; lane++ {
				Expect(regs.V[3][lane]).To(Equal(uint32(100 + 15 - lane)))
			}
		})

		It("should store only masked lanes", func() {
			for lane := range regs.V[3] {
				regs.V[3][lane] = uint32(lane + 1)
			}
			regs.S[1] = 0x2000
			regs.S[4] = 0x8001
			loadWords(core, 0, insts.EncodeMem(false, insts.AccessBlockMasked, 3, 1, 0, 4))
			core.SingleStep()

			Expect(memory.Read32(0x2000)).To(Equal(uint32(16)))
			Expect(memory.Read32(0x2004)).To(Equal(uint32(0)))
			Expect(memory.Read32(0x203c)).To(Equal(uint32(1)))

			Expect(rec.events).To(HaveLen(1))
			Expect(rec.events[0].Mask).To(Equal(uint64(0xf00000000000000f)))
		})

		It("should ignore a block store with an empty mask", func() {
			regs.S[1] = 0x2002
			regs.S[4] = 0
			loadWords(core, 0, insts.EncodeMem(false, insts.AccessBlockMasked, 3, 1, 0, 4))
			core.SingleStep()

			Expect(rec.events).To(BeEmpty())
			Expect(regs.PC).To(Equal(uint32(4)))
		})

		It("should fault on a misaligned block", func() {
			regs.S[1] = 0x2004
			loadWords(core, 0, insts.EncodeLoad(insts.AccessBlock, 3, 1, 0))
			core.SingleStep()

			Expect(core.Strand(0).FaultReason()).To(Equal(emu.FaultInvalidAccess))
		})
	})

	Context("multi-cycle transfers", func() {
		It("should gather one lane per retirement from lane 15 down", func() {
			for lane := range regs.V[1] {
				regs.V[1][lane] = 0x3000 + uint32(lane)*8
				Expect(memory.Write32(0x3000+uint32(lane)*8+4, uint32(0x50+lane))).To(Succeed())
			}
			loadWords(core, 0, insts.EncodeLoad(insts.AccessScatterGather, 2, 1, 4))

			for step := 0; step < 16; step++ {
				Expect(regs.PC).To(Equal(uint32(0)))
				core.SingleStep()
			}
			Expect(regs.PC).To(Equal(uint32(4)))
			Expect(core.Strand(0).Transfer().Active()).To(BeFalse())

			Expect(rec.events).To(HaveLen(16))
			for i, ev := range rec.events {
				lane := 15 - i
				Expect(ev.PC).To(Equal(uint32(0)))
				Expect(ev.Mask).To(Equal(uint64(1) << uint(lane)))
			}
			for lane := range regs.V[2] {
				Expect(regs.V[2][lane]).To(Equal(uint32(0x50 + lane)))
			}
		})

		It("should keep gathering while another strand runs", func() {
			for lane := range regs.V[1] {
				regs.V[1][lane] = 0x3000 + uint32(lane)*8
				Expect(memory.Write32(0x3000+uint32(lane)*8+4, uint32(0x50+lane))).To(Succeed())
			}
			regs.S[1] = 3
			other := core.Strand(1).RegFile()
			other.PC = 12
			other.S[6] = 20
			loadWords(core, 0,
				insts.EncodeSetControl(emu.CRStrandEnable, 1),
				insts.EncodeLoad(insts.AccessScatterGather, 2, 1, 4),
				insts.EncodeSetControl(emu.CRHaltStrand, 0),
				insts.EncodeB(insts.OpSub, insts.ImmShapeScalar, 6, 6, 1, 0),
				insts.EncodeBranch(insts.BranchNotZero, 6, -8),
				insts.EncodeSetControl(emu.CRHaltStrand, 0))

			quanta := 0
			for core.RunQuantum(1) != emu.StopHalted {
				quanta++
				Expect(quanta).To(BeNumerically("<", 100))
			}

			Expect(core.Err()).To(MatchError(emu.ErrAllStrandsDisabled))
			Expect(other.S[6]).To(Equal(uint32(0)))
			for lane := range regs.V[2] {
				Expect(regs.V[2][lane]).To(Equal(uint32(0x50 + lane)))
			}

			gathered := 0
			for _, ev := range rec.events {
				if ev.Strand == 0 && ev.Kind == emu.EventVectorWriteback {
					Expect(ev.PC).To(Equal(uint32(4)))
					gathered++
				}
			}
			Expect(gathered).To(Equal(16))
		})

		It("should take one retirement per active lane", func() {
			regs.S[1] = 0x3000
			regs.S[6] = 0x0f0f
			for lane := range regs.V[2] {
				regs.V[2][lane] = uint32(lane)
			}
			loadWords(core, 0, insts.EncodeMem(false, insts.AccessStridedMasked, 2, 1, 8, 6))

			steps := 0
			for regs.PC == 0 {
				core.SingleStep()
				steps++
				Expect(steps).To(BeNumerically("<=", 16))
			}

			Expect(steps).To(Equal(8))
			Expect(rec.events).To(HaveLen(8))
			// Lane 11 is stored first, at 0x3020, which is lane 7 of its line.
			Expect(rec.events[0].Address).To(Equal(uint32(0x3000)))
			Expect(rec.events[0].Values[7]).To(Equal(uint32(11)))

			Expect(memory.Read32(0x3000 + (15-11)*8)).To(Equal(uint32(11)))
			Expect(memory.Read32(0x3000 + (15-1)*8)).To(Equal(uint32(1)))
			Expect(memory.Read32(0x3000 + (15-4)*8)).To(Equal(uint32(0)))
			Expect(memory.Read32(0x3000 + (15-12)*8)).To(Equal(uint32(0)))
		})

		It("should retire once when no lane is active", func() {
			regs.S[6] = 0
			loadWords(core, 0, insts.EncodeMem(true, insts.AccessScatterGatherMasked, 2, 1, 0, 6))
			core.SingleStep()

			Expect(regs.PC).To(Equal(uint32(4)))
			Expect(rec.events).To(BeEmpty())
		})

		It("should return to idle when a lane faults", func() {
			regs.V[1][15] = 0x3000
			regs.V[1][14] = 0x3002
			loadWords(core, 0, insts.EncodeLoad(insts.AccessScatterGather, 2, 1, 0))

			core.SingleStep()
			Expect(core.Strand(0).Transfer().Active()).To(BeTrue())

			core.SingleStep()
			Expect(core.Strand(0).Transfer().Active()).To(BeFalse())
			Expect(core.Strand(0).FaultReason()).To(Equal(emu.FaultInvalidAccess))
		})
	})

	Context("load-linked and store-conditional", func() {
		BeforeEach(func() {
			regs.S[1] = 0x1000
			regs.S[3] = 42
			regs.S[4] = 43
		})

		It("should succeed exactly once after a load-linked", func() {
			loadWords(core, 0,
				insts.EncodeLoad(insts.AccessLinked, 2, 1, 0),
				insts.EncodeStore(insts.AccessLinked, 3, 1, 0),
				insts.EncodeStore(insts.AccessLinked, 4, 1, 0))

			core.SingleStep()
			core.SingleStep()
			Expect(regs.S[3]).To(Equal(uint32(1)))
			Expect(memory.Read32(0x1000)).To(Equal(uint32(42)))

			core.SingleStep()
			Expect(regs.S[4]).To(Equal(uint32(0)))
			Expect(memory.Read32(0x1000)).To(Equal(uint32(42)))
		})

		It("should not report the success flag as a side effect", func() {
			loadWords(core, 0,
				insts.EncodeLoad(insts.AccessLinked, 2, 1, 0),
				insts.EncodeStore(insts.AccessLinked, 3, 1, 0))

			core.SingleStep()
			core.SingleStep()

			Expect(rec.events).To(HaveLen(2))
			Expect(rec.events[0].Kind).To(Equal(emu.EventScalarWriteback))
			Expect(rec.events[1].Kind).To(Equal(emu.EventMemoryStore))
		})

		It("should fail after another strand stores to the same line", func() {
			loadWords(core, 0,
				insts.EncodeLoad(insts.AccessLinked, 2, 1, 0),
				insts.EncodeStore(insts.AccessLinked, 3, 1, 0))
			loadWords(core, 0x100, insts.EncodeStore(insts.AccessWord, 4, 1, 0x3c))

			other := core.Strand(1).RegFile()
			other.PC = 0x100
			other.S[1] = 0x1000
			other.S[4] = 7

			core.SingleStep()

			ok, err := core.RetireUntilSideEffect(1, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			core.SingleStep()
			Expect(regs.S[3]).To(Equal(uint32(0)))
			Expect(memory.Read32(0x1000)).To(Equal(uint32(0)))
			Expect(memory.Read32(0x103c)).To(Equal(uint32(7)))
		})

		It("should keep the link when another line is stored", func() {
			loadWords(core, 0,
				insts.EncodeLoad(insts.AccessLinked, 2, 1, 0),
				insts.EncodeStore(insts.AccessLinked, 3, 1, 0))
			loadWords(core, 0x100, insts.EncodeStore(insts.AccessWord, 4, 1, 0x40))

			other := core.Strand(1).RegFile()
			other.PC = 0x100
			other.S[1] = 0x1000

			core.SingleStep()
			_, _ = core.RetireUntilSideEffect(1, 1)
			core.SingleStep()

			Expect(regs.S[3]).To(Equal(uint32(1)))
		})
	})
})
