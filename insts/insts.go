// Package insts provides instruction definitions and decoding for the
// strand vector processor.
//
// Every 32-bit instruction word belongs to one of five encodings:
//   - Format A: register/register arithmetic with a 7-way operand shape
//   - Format B: register/immediate arithmetic
//   - Format C: scalar, vector and control register memory transfers
//   - Format D: cache control (no architectural side effect)
//   - Format E: branches and calls
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x02800020) // s1 = s0 + 0
//	fmt.Printf("Op: %v, Dest: %d, Src1: %d, Imm: %d\n", inst.Op, inst.Dest, inst.Src1, inst.Imm)
package insts

const (
	// NumRegisters is the number of addressable scalar and vector registers.
	NumRegisters = 32

	// NumLanes is the number of lanes in a vector register.
	NumLanes = 16

	// PCReg is the scalar register index that aliases the program counter.
	PCReg = 31

	// LinkReg receives the return address of call instructions.
	LinkReg = 30

	// BreakpointWord is the trap word written over an instruction when a
	// breakpoint is set. It is a Format A word with shape 7, which no
	// assembler emits.
	BreakpointWord uint32 = 0xdfffffff
)
