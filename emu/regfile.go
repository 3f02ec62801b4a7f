package emu

import "github.com/sarchlab/strandsim/insts"

// Vector holds one value per lane.
type Vector [insts.NumLanes]uint32

// AllLanes is the lane mask with every lane enabled.
const AllLanes uint16 = 0xffff

// RegFile represents the register file of one strand.
// It contains 31 scalar registers (s0-s30), the program counter, which is
// addressed as scalar register 31, and 32 vector registers.
type RegFile struct {
	// S holds scalar registers s0-s30.
	S [insts.NumRegisters - 1]uint32

	// V holds vector registers v0-v31.
	V [insts.NumRegisters]Vector

	// PC is the address of the next instruction to fetch. While an
	// instruction executes it already points past that instruction, so
	// reading register 31 yields the address of the following instruction.
	PC uint32
}

// ReadScalar reads a scalar register. Register 31 returns the PC.
func (r *RegFile) ReadScalar(reg uint8) uint32 {
	if reg == insts.PCReg {
		return r.PC
	}
	return r.S[reg&0x1f]
}

// WriteScalar writes a scalar register. Writing register 31 sets the PC.
func (r *RegFile) WriteScalar(reg uint8, value uint32) {
	if reg == insts.PCReg {
		r.PC = value
		return
	}
	r.S[reg&0x1f] = value
}

// ReadVector reads a vector register.
func (r *RegFile) ReadVector(reg uint8) Vector {
	return r.V[reg&0x1f]
}

// WriteVector writes the lanes of a vector register selected by mask.
// Lanes outside the mask keep their value.
func (r *RegFile) WriteVector(reg uint8, mask uint16, values Vector) {
	dst := &r.V[reg&0x1f]
	for lane := 0; lane < insts.NumLanes; lane++ {
		if mask&(1<<lane) != 0 {
			dst[lane] = values[lane]
		}
	}
}
