// Package emu provides functional emulation of the strand vector processor.
package emu

import (
	"math"
	"math/bits"

	"github.com/sarchlab/strandsim/insts"
)

// canonicalNaN is the bit pattern every NaN float result is converted to.
const canonicalNaN uint32 = 0x7fffffff

// ALU implements the arithmetic operations of Format A and Format B.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Compute applies op to two 32-bit operands. Compare operations return 1 for
// true and 0 for false.
func (a *ALU) Compute(op insts.Op, x, y uint32) uint32 {
	switch op {
	case insts.OpOr:
		return x | y
	case insts.OpAnd:
		return x & y
	case insts.OpAndNot:
		return x &^ y
	case insts.OpXor:
		return x ^ y
	case insts.OpNot:
		return ^y
	case insts.OpAdd:
		return x + y
	case insts.OpSub:
		return x - y
	case insts.OpMul:
		return x * y
	case insts.OpDiv:
		return divide(int32(x), int32(y))
	case insts.OpAshr:
		return uint32(int32(x) >> (y & 31))
	case insts.OpShr:
		return x >> (y & 31)
	case insts.OpShl:
		return x << (y & 31)
	case insts.OpClz:
		return uint32(bits.LeadingZeros32(y))
	case insts.OpCtz:
		return uint32(bits.TrailingZeros32(y))
	case insts.OpCopy:
		return y
	case insts.OpEq:
		return boolToUint(x == y)
	case insts.OpNe:
		return boolToUint(x != y)
	case insts.OpGt:
		return boolToUint(int32(x) > int32(y))
	case insts.OpGe:
		return boolToUint(int32(x) >= int32(y))
	case insts.OpLt:
		return boolToUint(int32(x) < int32(y))
	case insts.OpLe:
		return boolToUint(int32(x) <= int32(y))
	case insts.OpGtU:
		return boolToUint(x > y)
	case insts.OpGeU:
		return boolToUint(x >= y)
	case insts.OpLtU:
		return boolToUint(x < y)
	case insts.OpLeU:
		return boolToUint(x <= y)
	case insts.OpFtoi:
		return floatToInt(asFloat(y))
	case insts.OpReciprocal:
		return reciprocal(y)
	case insts.OpSext8:
		return uint32(int32(int8(y)))
	case insts.OpSext16:
		return uint32(int32(int16(y)))
	case insts.OpFAdd:
		return asBits(asFloat(x) + asFloat(y))
	case insts.OpFSub:
		return asBits(asFloat(x) - asFloat(y))
	case insts.OpFMul:
		return asBits(asFloat(x) * asFloat(y))
	case insts.OpFDiv:
		return asBits(asFloat(x) / asFloat(y))
	case insts.OpFloor:
		return asBits(float32(math.Floor(float64(asFloat(y)))))
	case insts.OpFrac:
		f := asFloat(y)
		return asBits(f - float32(math.Trunc(float64(f))))
	case insts.OpFAbs:
		return asBits(float32(math.Abs(float64(asFloat(y)))))
	case insts.OpItof:
		return asBits(float32(int32(y)))
	case insts.OpFGt:
		return boolToUint(asFloat(x) > asFloat(y))
	case insts.OpFGe:
		return boolToUint(asFloat(x) >= asFloat(y))
	case insts.OpFLt:
		return boolToUint(asFloat(x) < asFloat(y))
	case insts.OpFLe:
		return boolToUint(asFloat(x) <= asFloat(y))
	default:
		return 0
	}
}

// ExecuteA executes a register/register instruction.
func (a *ALU) ExecuteA(s *Strand, inst *insts.Instruction) {
	regs := s.regFile

	switch {
	case inst.Op == insts.OpGetLane:
		src := regs.ReadVector(inst.Src1)
		index := regs.ReadScalar(inst.Src2)
		s.setScalar(inst.Dest, src[insts.NumLanes-1-int(index&0xf)])

	case inst.Op.IsCompare():
		if inst.Shape == insts.ShapeScalarScalar {
			s.setScalar(inst.Dest, a.scalarCompare(inst.Op,
				regs.ReadScalar(inst.Src1), regs.ReadScalar(inst.Src2)))
			return
		}
		s.setScalar(inst.Dest, uint32(a.vectorCompare(inst.Op,
			regs.ReadVector(inst.Src1), a.operandA(regs, inst))))

	case inst.Shape == insts.ShapeScalarScalar:
		s.setScalar(inst.Dest, a.Compute(inst.Op,
			regs.ReadScalar(inst.Src1), regs.ReadScalar(inst.Src2)))

	default:
		var result Vector
		src1 := regs.ReadVector(inst.Src1)

		if inst.Op == insts.OpShuffle {
			indexes := regs.ReadVector(inst.Src2)
			for lane := range result {
				result[lane] = src1[insts.NumLanes-1-int(indexes[lane]&0xf)]
			}
		} else {
			src2 := a.operandA(regs, inst)
			for lane := range result {
				result[lane] = a.Compute(inst.Op, src1[lane], src2[lane])
			}
		}

		s.setVector(inst.Dest, laneMask(regs, inst), result)
	}
}

// ExecuteB executes a register/immediate instruction.
func (a *ALU) ExecuteB(s *Strand, inst *insts.Instruction) {
	regs := s.regFile
	imm := uint32(inst.Imm)

	switch {
	case inst.Op == insts.OpGetLane:
		src := regs.ReadVector(inst.Src1)
		s.setScalar(inst.Dest, src[insts.NumLanes-1-int(imm&0xf)])

	case inst.Op.IsCompare():
		if inst.ImmShape.SrcIsVector() {
			s.setScalar(inst.Dest, uint32(a.vectorCompare(inst.Op,
				regs.ReadVector(inst.Src1), splat(imm))))
			return
		}
		s.setScalar(inst.Dest, a.scalarCompare(inst.Op, regs.ReadScalar(inst.Src1), imm))

	case inst.ImmShape == insts.ImmShapeScalar:
		s.setScalar(inst.Dest, a.Compute(inst.Op, regs.ReadScalar(inst.Src1), imm))

	default:
		var src1 Vector
		if inst.ImmShape.SrcIsVector() {
			src1 = regs.ReadVector(inst.Src1)
		} else {
			src1 = splat(regs.ReadScalar(inst.Src1))
		}

		var result Vector
		for lane := range result {
			result[lane] = a.Compute(inst.Op, src1[lane], imm)
		}

		s.setVector(inst.Dest, laneMask(regs, inst), result)
	}
}

// scalarCompare returns 0xffff when the predicate holds.
func (a *ALU) scalarCompare(op insts.Op, x, y uint32) uint32 {
	if a.Compute(op, x, y) != 0 {
		return 0xffff
	}
	return 0
}

// vectorCompare packs the predicate of lane i into bit i.
func (a *ALU) vectorCompare(op insts.Op, x, y Vector) uint16 {
	var result uint16
	for lane := 0; lane < insts.NumLanes; lane++ {
		if a.Compute(op, x[lane], y[lane]) != 0 {
			result |= 1 << lane
		}
	}
	return result
}

// operandA returns the second operand of a vector Format A instruction.
func (a *ALU) operandA(regs *RegFile, inst *insts.Instruction) Vector {
	if inst.Shape.Src2IsVector() {
		return regs.ReadVector(inst.Src2)
	}
	return splat(regs.ReadScalar(inst.Src2))
}

// laneMask returns the lane mask of a vector instruction.
func laneMask(regs *RegFile, inst *insts.Instruction) uint16 {
	switch inst.MaskMode() {
	case insts.MaskRegister:
		return uint16(regs.ReadScalar(inst.MaskReg))
	case insts.MaskInverted:
		return ^uint16(regs.ReadScalar(inst.MaskReg))
	default:
		return AllLanes
	}
}

func splat(value uint32) Vector {
	var v Vector
	for lane := range v {
		v[lane] = value
	}
	return v
}

func boolToUint(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// divide is signed division. Division by zero yields 0 and the one
// overflowing quotient yields MinInt32.
func divide(x, y int32) uint32 {
	switch {
	case y == 0:
		return 0
	case x == math.MinInt32 && y == -1:
		return uint32(x)
	default:
		return uint32(x / y)
	}
}

func asFloat(v uint32) float32 {
	return math.Float32frombits(v)
}

// asBits converts a float result to its bit pattern, canonicalizing NaN.
func asBits(f float32) uint32 {
	v := math.Float32bits(f)
	if isNaN(v) {
		return canonicalNaN
	}
	return v
}

func isNaN(v uint32) bool {
	return (v>>23)&0xff == 0xff && v&0x7fffff != 0
}

// floatToInt truncates toward zero, saturating out-of-range values. NaN
// converts to 0.
func floatToInt(f float32) uint32 {
	switch {
	case math.IsNaN(float64(f)):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return 1 << 31
	default:
		return uint32(int32(f))
	}
}

// reciprocal approximates 1/x using the top 15 bits of the operand and
// truncates the result to the same precision.
func reciprocal(v uint32) uint32 {
	result := asBits(float32(1.0 / float64(asFloat(v&0xfffe0000))))
	if !isNaN(result) {
		result &= 0xfffe0000
	}
	return result
}
