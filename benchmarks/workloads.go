package benchmarks

import (
	"fmt"

	"github.com/sarchlab/strandsim/emu"
	"github.com/sarchlab/strandsim/insts"
)

// GetWorkloads returns the standard set of workloads. Each one targets a
// different part of the core and checks its own final state.
func GetWorkloads() []Benchmark {
	return []Benchmark{
		scalarLoop(),
		atomicCounter(),
		vectorGather(),
		stridedCopy(),
		functionCalls(),
		maskedUpdate(),
	}
}

// GetQuickWorkloads returns a small subset for smoke testing.
func GetQuickWorkloads() []Benchmark {
	return []Benchmark{
		scalarLoop(),
		atomicCounter(),
	}
}

func copyImm(dest uint8, imm int32) uint32 {
	return insts.EncodeB(insts.OpCopy, insts.ImmShapeScalar, dest, 0, imm, 0)
}

func addImm(dest, src uint8, imm int32) uint32 {
	return insts.EncodeB(insts.OpAdd, insts.ImmShapeScalar, dest, src, imm, 0)
}

func expectScalar(core *emu.Core, strand int, reg uint8, want uint32) error {
	got := core.Strand(strand).RegFile().ReadScalar(reg)
	if got != want {
		return fmt.Errorf("strand %d s%d = %d, want %d", strand, reg, got, want)
	}
	return nil
}

func expectWord(core *emu.Core, addr, want uint32) error {
	got, err := core.Memory().Read32(addr)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("word at %08x = %d, want %d", addr, got, want)
	}
	return nil
}

// 1. Scalar Loop - counted loop with a dependent accumulator
func scalarLoop() Benchmark {
	return Benchmark{
		Name:        "scalar_loop",
		Description: "Sum 1..100 in a counted loop - measures scalar ALU and branch cost",
		Program: []uint32{
			copyImm(1, 100), // s1 = 100
			copyImm(2, 0),   // s2 = 0
			insts.EncodeA(insts.OpAdd, insts.ShapeScalarScalar, 2, 2, 1, 0), // loop: s2 += s1
			addImm(1, 1, -1), // s1--
			insts.EncodeBranch(insts.BranchNotZero, 1, -12),
			insts.EncodeHalt(),
		},
		Verify: func(core *emu.Core) error {
			return expectScalar(core, 0, 2, 5050)
		},
	}
}

// atomicIterations is the number of increments each strand performs.
const atomicIterations = 50

// counterAddr is the shared counter of the atomic workload.
const counterAddr = 0x800

// 2. Atomic Counter - all strands increment one word with LL/SC
func atomicCounter() Benchmark {
	return Benchmark{
		Name:        "atomic_counter",
		Description: "4 strands increment a shared word with load-linked/store-conditional",
		Program: []uint32{
			copyImm(1, 0xf),
			insts.EncodeSetControl(emu.CRStrandEnable, 1),
			copyImm(2, counterAddr),
			copyImm(3, atomicIterations),
			insts.EncodeLoad(insts.AccessLinked, 4, 2, 0), // retry: s4 = [s2]
			addImm(4, 4, 1),
			insts.EncodeStore(insts.AccessLinked, 4, 2, 0), // s4 = success
			insts.EncodeBranch(insts.BranchZero, 4, -16),
			addImm(3, 3, -1),
			insts.EncodeBranch(insts.BranchNotZero, 3, -24),
			insts.EncodeSetControl(emu.CRHaltStrand, 0),
		},
		Verify: func(core *emu.Core) error {
			return expectWord(core, counterAddr, emu.NumStrands*atomicIterations)
		},
	}
}

const (
	gatherTable  = 0x400
	gatherResult = 0x500
)

// 3. Vector Gather - indexed loads, vector multiply, block store
func vectorGather() Benchmark {
	return Benchmark{
		Name:        "vector_gather",
		Description: "Gather 16 table entries, double them and block store the result",
		Setup: func(core *emu.Core) {
			regs := core.Strand(0).RegFile()
			for i := uint32(0); i < insts.NumLanes; i++ {
				_ = core.Memory().Write32(gatherTable+i*4, i*3)
				regs.V[1][i] = gatherTable + i*4
			}
		},
		Program: []uint32{
			insts.EncodeLoad(insts.AccessScatterGather, 2, 1, 0),
			insts.EncodeB(insts.OpMul, insts.ImmShapeVector, 3, 2, 2, 0),
			copyImm(5, gatherResult),
			insts.EncodeStore(insts.AccessBlock, 3, 5, 0),
			insts.EncodeHalt(),
		},
		Verify: func(core *emu.Core) error {
			for lane := uint32(0); lane < insts.NumLanes; lane++ {
				addr := gatherResult + (insts.NumLanes-1-lane)*4
				if err := expectWord(core, addr, lane*6); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

const (
	stridedBase   = 0x600
	stridedStride = 8
)

// 4. Strided Copy - strided store and reload of a vector
func stridedCopy() Benchmark {
	return Benchmark{
		Name:        "strided_copy",
		Description: "Strided store and reload of 16 lanes, compared against the source",
		Setup: func(core *emu.Core) {
			regs := core.Strand(0).RegFile()
			for lane := range regs.V[1] {
				regs.V[1][lane] = uint32(lane) + 100
			}
		},
		Program: []uint32{
			copyImm(1, stridedBase),
			insts.EncodeStore(insts.AccessStrided, 1, 1, stridedStride),
			insts.EncodeLoad(insts.AccessStrided, 2, 1, stridedStride),
			insts.EncodeA(insts.OpSub, insts.ShapeVectorVector, 3, 2, 1, 0),
			insts.EncodeB(insts.OpNe, insts.ImmShapeVector, 4, 3, 0, 0),
			insts.EncodeHalt(),
		},
		Verify: func(core *emu.Core) error {
			if err := expectScalar(core, 0, 4, 0); err != nil {
				return err
			}
			if err := expectWord(core, stridedBase, 115); err != nil {
				return err
			}
			return expectWord(core, stridedBase+15*stridedStride, 100)
		},
	}
}

// 5. Function Calls - call by offset and return through the link register
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "10 calls to a function adding 3 - measures call and return overhead",
		Program: []uint32{
			copyImm(2, 10),
			copyImm(1, 0),
			insts.EncodeBranch(insts.BranchCallOffset, 0, 12), // loop: call add_three
			addImm(2, 2, -1),
			insts.EncodeBranch(insts.BranchNotZero, 2, -12),
			insts.EncodeHalt(),

			// add_three
			addImm(1, 1, 3),
			insts.EncodeA(insts.OpCopy, insts.ShapeScalarScalar, insts.PCReg, 0, insts.LinkReg, 0),
		},
		Verify: func(core *emu.Core) error {
			return expectScalar(core, 0, 1, 30)
		},
	}
}

// 6. Masked Update - compare into a lane mask, then masked arithmetic
func maskedUpdate() Benchmark {
	return Benchmark{
		Name:        "masked_update",
		Description: "Vector compare builds a mask that selects lanes for masked adds",
		Setup: func(core *emu.Core) {
			regs := core.Strand(0).RegFile()
			for lane := range regs.V[1] {
				regs.V[1][lane] = uint32(lane)
			}
		},
		Program: []uint32{
			insts.EncodeB(insts.OpGt, insts.ImmShapeVector, 1, 1, 7, 0),
			insts.EncodeB(insts.OpAdd, insts.ImmShapeVectorMasked, 2, 1, 100, 1),
			insts.EncodeB(insts.OpAdd, insts.ImmShapeVectorInvMasked, 2, 1, 0, 1),
			insts.EncodeHalt(),
		},
		Verify: func(core *emu.Core) error {
			if err := expectScalar(core, 0, 1, 0xff00); err != nil {
				return err
			}
			v := core.VectorRegister(2)
			for lane, got := range v {
				want := uint32(lane)
				if lane > 7 {
					want += 100
				}
				if got != want {
					return fmt.Errorf("v2 lane %d = %d, want %d", lane, got, want)
				}
			}
			return nil
		},
	}
}
