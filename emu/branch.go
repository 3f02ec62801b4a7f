package emu

import "github.com/sarchlab/strandsim/insts"

// BranchUnit implements branches and calls.
type BranchUnit struct{}

// NewBranchUnit creates a new BranchUnit.
func NewBranchUnit() *BranchUnit {
	return &BranchUnit{}
}

// Taken reports whether a conditional branch of the given kind is taken for
// the source register value.
func (b *BranchUnit) Taken(kind insts.BranchKind, value uint32) bool {
	switch kind {
	case insts.BranchAll:
		return value&0xffff == 0xffff
	case insts.BranchZero:
		return value == 0
	case insts.BranchNotZero:
		return value != 0
	case insts.BranchNotAll:
		return value&0xffff != 0xffff
	case insts.BranchAlways, insts.BranchCallOffset, insts.BranchCallRegister:
		return true
	default:
		return false
	}
}

// Execute executes a Format E instruction. Offsets are relative to the
// instruction after the branch, which is where the PC already points. Calls
// write the return address to the link register.
func (b *BranchUnit) Execute(s *Strand, inst *insts.Instruction) {
	regs := s.regFile

	switch inst.Branch {
	case insts.BranchCallRegister:
		target := regs.ReadScalar(inst.Src1)
		s.setScalar(insts.LinkReg, regs.PC)
		regs.PC = target
		return
	case insts.BranchCallOffset:
		s.setScalar(insts.LinkReg, regs.PC)
	}

	if b.Taken(inst.Branch, regs.ReadScalar(inst.Src1)) {
		regs.PC += uint32(inst.Imm)
	}
}
