package insts

import "fmt"

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatInvalid Format = iota
	FormatNop            // All-zero word; writeback disabled
	FormatA              // Register/register arithmetic
	FormatB              // Register/immediate arithmetic
	FormatC              // Memory access and control register transfer
	FormatD              // Cache control
	FormatE              // Branch
)

var formatNames = [...]string{"invalid", "nop", "A", "B", "C", "D", "E"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// Op is an arithmetic operation shared by Format A and Format B.
type Op uint8

// Arithmetic operations. The numeric values are the encoded opcodes.
const (
	OpOr         Op = 0
	OpAnd        Op = 1
	OpAndNot     Op = 2
	OpXor        Op = 3
	OpNot        Op = 4
	OpAdd        Op = 5
	OpSub        Op = 6
	OpMul        Op = 7
	OpDiv        Op = 8
	OpAshr       Op = 9
	OpShr        Op = 10
	OpShl        Op = 11
	OpClz        Op = 12
	OpShuffle    Op = 13
	OpCtz        Op = 14
	OpCopy       Op = 15
	OpEq         Op = 16
	OpNe         Op = 17
	OpGt         Op = 18
	OpGe         Op = 19
	OpLt         Op = 20
	OpLe         Op = 21
	OpGtU        Op = 22
	OpGeU        Op = 23
	OpLtU        Op = 24
	OpLeU        Op = 25
	OpGetLane    Op = 26
	OpFtoi       Op = 27
	OpReciprocal Op = 28
	OpSext8      Op = 29
	OpSext16     Op = 30
	OpFAdd       Op = 32
	OpFSub       Op = 33
	OpFMul       Op = 34
	OpFDiv       Op = 35
	OpFloor      Op = 38
	OpFrac       Op = 39
	OpFAbs       Op = 41
	OpItof       Op = 42
	OpFGt        Op = 44
	OpFGe        Op = 45
	OpFLt        Op = 46
	OpFLe        Op = 47

	// OpInvalid marks an opcode with no defined operation.
	OpInvalid Op = 0xff
)

type opInfo struct {
	name    string
	valid   bool
	compare bool
	float   bool
}

var opTable = [64]opInfo{
	OpOr:         {name: "or", valid: true},
	OpAnd:        {name: "and", valid: true},
	OpAndNot:     {name: "andnot", valid: true},
	OpXor:        {name: "xor", valid: true},
	OpNot:        {name: "not", valid: true},
	OpAdd:        {name: "add", valid: true},
	OpSub:        {name: "sub", valid: true},
	OpMul:        {name: "mul", valid: true},
	OpDiv:        {name: "div", valid: true},
	OpAshr:       {name: "ashr", valid: true},
	OpShr:        {name: "shr", valid: true},
	OpShl:        {name: "shl", valid: true},
	OpClz:        {name: "clz", valid: true},
	OpShuffle:    {name: "shuffle", valid: true},
	OpCtz:        {name: "ctz", valid: true},
	OpCopy:       {name: "copy", valid: true},
	OpEq:         {name: "eq", valid: true, compare: true},
	OpNe:         {name: "ne", valid: true, compare: true},
	OpGt:         {name: "gt", valid: true, compare: true},
	OpGe:         {name: "ge", valid: true, compare: true},
	OpLt:         {name: "lt", valid: true, compare: true},
	OpLe:         {name: "le", valid: true, compare: true},
	OpGtU:        {name: "gtu", valid: true, compare: true},
	OpGeU:        {name: "geu", valid: true, compare: true},
	OpLtU:        {name: "ltu", valid: true, compare: true},
	OpLeU:        {name: "leu", valid: true, compare: true},
	OpGetLane:    {name: "getlane", valid: true},
	OpFtoi:       {name: "ftoi", valid: true, float: true},
	OpReciprocal: {name: "reciprocal", valid: true, float: true},
	OpSext8:      {name: "sext8", valid: true},
	OpSext16:     {name: "sext16", valid: true},
	OpFAdd:       {name: "fadd", valid: true, float: true},
	OpFSub:       {name: "fsub", valid: true, float: true},
	OpFMul:       {name: "fmul", valid: true, float: true},
	OpFDiv:       {name: "fdiv", valid: true, float: true},
	OpFloor:      {name: "floor", valid: true, float: true},
	OpFrac:       {name: "frac", valid: true, float: true},
	OpFAbs:       {name: "fabs", valid: true, float: true},
	OpItof:       {name: "itof", valid: true, float: true},
	OpFGt:        {name: "fgt", valid: true, compare: true, float: true},
	OpFGe:        {name: "fge", valid: true, compare: true, float: true},
	OpFLt:        {name: "flt", valid: true, compare: true, float: true},
	OpFLe:        {name: "fle", valid: true, compare: true, float: true},
}

// Valid reports whether the opcode names a defined operation.
func (o Op) Valid() bool {
	return int(o) < len(opTable) && opTable[o].valid
}

// IsCompare reports whether the operation produces a predicate.
func (o Op) IsCompare() bool {
	return o.Valid() && opTable[o].compare
}

// IsFloat reports whether the operation interprets operands as floats.
func (o Op) IsFloat() bool {
	return o.Valid() && opTable[o].float
}

func (o Op) String() string {
	if o.Valid() {
		return opTable[o].name
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// MaskMode selects how the lane mask of a vector operation is formed.
type MaskMode uint8

// Mask modes.
const (
	MaskNone     MaskMode = iota // All lanes enabled
	MaskRegister                 // Low 16 bits of the mask register
	MaskInverted                 // Complement of the mask register
)

// Shape is the Format A operand shape.
type Shape uint8

// Format A operand shapes. The numeric values are the encoded fields.
const (
	ShapeScalarScalar          Shape = 0
	ShapeVectorScalar          Shape = 1
	ShapeVectorScalarMasked    Shape = 2
	ShapeVectorScalarInvMasked Shape = 3
	ShapeVectorVector          Shape = 4
	ShapeVectorVectorMasked    Shape = 5
	ShapeVectorVectorInvMasked Shape = 6
	ShapeInvalid               Shape = 7
)

// IsVector reports whether the first operand and destination are vectors.
func (s Shape) IsVector() bool {
	return s != ShapeScalarScalar && s != ShapeInvalid
}

// Src2IsVector reports whether the second operand is a vector register.
func (s Shape) Src2IsVector() bool {
	switch s {
	case ShapeVectorVector, ShapeVectorVectorMasked, ShapeVectorVectorInvMasked:
		return true
	default:
		return false
	}
}

// MaskMode returns how the lane mask is formed for this shape.
func (s Shape) MaskMode() MaskMode {
	switch s {
	case ShapeVectorScalarMasked, ShapeVectorVectorMasked:
		return MaskRegister
	case ShapeVectorScalarInvMasked, ShapeVectorVectorInvMasked:
		return MaskInverted
	default:
		return MaskNone
	}
}

// ImmShape is the Format B operand shape.
type ImmShape uint8

// Format B operand shapes.
const (
	ImmShapeScalar             ImmShape = 0
	ImmShapeVector             ImmShape = 1
	ImmShapeVectorMasked       ImmShape = 2
	ImmShapeVectorInvMasked    ImmShape = 3
	ImmShapeBroadcast          ImmShape = 4
	ImmShapeBroadcastMasked    ImmShape = 5
	ImmShapeBroadcastInvMasked ImmShape = 6
	ImmShapeInvalid            ImmShape = 7
)

// IsVector reports whether the destination is a vector register.
func (s ImmShape) IsVector() bool {
	return s != ImmShapeScalar && s != ImmShapeInvalid
}

// SrcIsVector reports whether the register operand is a vector register.
func (s ImmShape) SrcIsVector() bool {
	switch s {
	case ImmShapeVector, ImmShapeVectorMasked, ImmShapeVectorInvMasked:
		return true
	default:
		return false
	}
}

// MaskMode returns how the lane mask is formed for this shape.
func (s ImmShape) MaskMode() MaskMode {
	switch s {
	case ImmShapeVectorMasked, ImmShapeBroadcastMasked:
		return MaskRegister
	case ImmShapeVectorInvMasked, ImmShapeBroadcastInvMasked:
		return MaskInverted
	default:
		return MaskNone
	}
}

// Access is the Format C transfer width or vector access pattern.
type Access uint8

// Memory access codes. The numeric values are the encoded fields.
const (
	AccessByte                Access = 0
	AccessByteSigned          Access = 1
	AccessShort               Access = 2
	AccessShortSigned         Access = 3
	AccessWord                Access = 4
	AccessLinked              Access = 5
	AccessControl             Access = 6
	AccessBlock               Access = 7
	AccessBlockMasked         Access = 8
	AccessBlockInvMasked      Access = 9
	AccessStrided             Access = 10
	AccessStridedMasked       Access = 11
	AccessStridedInvMasked    Access = 12
	AccessScatterGather       Access = 13
	AccessScatterGatherMasked Access = 14
	AccessScatterGatherInv    Access = 15
)

// VectorPattern groups vector accesses by addressing pattern.
type VectorPattern uint8

// Vector access patterns.
const (
	PatternNone VectorPattern = iota
	PatternBlock
	PatternStrided
	PatternScatterGather
)

// IsVector reports whether the access transfers a vector register.
func (a Access) IsVector() bool {
	return a >= AccessBlock
}

// Pattern returns the vector addressing pattern of the access.
func (a Access) Pattern() VectorPattern {
	switch a {
	case AccessBlock, AccessBlockMasked, AccessBlockInvMasked:
		return PatternBlock
	case AccessStrided, AccessStridedMasked, AccessStridedInvMasked:
		return PatternStrided
	case AccessScatterGather, AccessScatterGatherMasked, AccessScatterGatherInv:
		return PatternScatterGather
	default:
		return PatternNone
	}
}

// MaskMode returns how the lane mask is formed for a vector access.
func (a Access) MaskMode() MaskMode {
	switch a {
	case AccessBlockMasked, AccessStridedMasked, AccessScatterGatherMasked:
		return MaskRegister
	case AccessBlockInvMasked, AccessStridedInvMasked, AccessScatterGatherInv:
		return MaskInverted
	default:
		return MaskNone
	}
}

// BranchKind is the Format E branch condition.
type BranchKind uint8

// Branch kinds. The numeric values are the encoded fields.
const (
	BranchAll          BranchKind = 0
	BranchZero         BranchKind = 1
	BranchNotZero      BranchKind = 2
	BranchAlways       BranchKind = 3
	BranchCallOffset   BranchKind = 4
	BranchNotAll       BranchKind = 5
	BranchCallRegister BranchKind = 6
	BranchInvalid      BranchKind = 7
)

// CacheOp is the Format D cache control operation.
type CacheOp uint8

// Cache control operations.
const (
	CacheDPreload    CacheOp = 0
	CacheDInvalidate CacheOp = 1
	CacheDFlush      CacheOp = 2
	CacheIInvalidate CacheOp = 3
	CacheBarrier     CacheOp = 4
)

// Instruction represents a decoded instruction word.
type Instruction struct {
	Word   uint32 // Raw encoding
	Format Format // Encoding format

	// Register fields
	Src1    uint8 // First source, pointer register or control register index
	Src2    uint8 // Second source (Format A)
	Dest    uint8 // Destination, or store source for Format C
	MaskReg uint8 // Mask register

	// Format A/B
	Op       Op
	Shape    Shape
	ImmShape ImmShape

	// Imm is the sign-extended immediate of Format B, the memory offset of
	// Format C and the byte offset of Format E.
	Imm int32

	// Format C
	Load   bool
	Access Access

	// Format D
	CacheOp CacheOp

	// Format E
	Branch BranchKind
}

// MaskMode returns how the lane mask of a vector instruction is formed.
func (i *Instruction) MaskMode() MaskMode {
	switch i.Format {
	case FormatA:
		return i.Shape.MaskMode()
	case FormatB:
		return i.ImmShape.MaskMode()
	case FormatC:
		return i.Access.MaskMode()
	default:
		return MaskNone
	}
}

// Decoder decodes machine words into instructions.
type Decoder struct{}

// NewDecoder creates a new instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word. Words that do not name a
// defined operation decode with Format set to FormatInvalid.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{Word: word}
	d.DecodeInto(word, inst)
	return inst
}

// DecodeInto decodes a word into an existing Instruction, overwriting every
// field.
func (d *Decoder) DecodeInto(word uint32, inst *Instruction) {
	*inst = Instruction{Word: word}

	switch {
	case word == 0:
		inst.Format = FormatNop
	case word&0xe0000000 == 0xc0000000:
		d.decodeA(word, inst)
	case word&0x80000000 == 0:
		d.decodeB(word, inst)
	case word&0xc0000000 == 0x80000000:
		d.decodeC(word, inst)
	case word&0xf0000000 == 0xe0000000:
		d.decodeD(word, inst)
	default:
		d.decodeE(word, inst)
	}
}

// bits extracts an unsigned field.
func bits(word uint32, low, size uint) uint32 {
	return (word >> low) & ((1 << size) - 1)
}

// signedBits extracts a field and sign-extends it.
func signedBits(word uint32, low, size uint) int32 {
	v := bits(word, low, size)
	shift := 32 - size
	return int32(v<<shift) >> shift
}

// decodeA decodes register/register arithmetic.
// Format: 110 | shape[28:26] | op[25:20] | src2[19:15] | mask[14:10] | dest[9:5] | src1[4:0]
func (d *Decoder) decodeA(word uint32, inst *Instruction) {
	inst.Shape = Shape(bits(word, 26, 3))
	inst.Op = Op(bits(word, 20, 6))
	inst.Src2 = uint8(bits(word, 15, 5))
	inst.MaskReg = uint8(bits(word, 10, 5))
	inst.Dest = uint8(bits(word, 5, 5))
	inst.Src1 = uint8(bits(word, 0, 5))

	if inst.Shape == ShapeInvalid || !inst.Op.Valid() {
		inst.Format = FormatInvalid
		return
	}

	// Shuffle and getlane only have meaning with vector operands.
	if inst.Shape == ShapeScalarScalar && (inst.Op == OpShuffle || inst.Op == OpGetLane) {
		inst.Format = FormatInvalid
		return
	}
	if inst.Op == OpShuffle && !inst.Shape.Src2IsVector() {
		inst.Format = FormatInvalid
		return
	}

	inst.Format = FormatA
}

// decodeB decodes register/immediate arithmetic.
// Format: 0 | shape[30:28] | op[27:23] | imm | dest[9:5] | src1[4:0]
// Masked shapes carry an 8-bit immediate at [22:15] and the mask register at
// [14:10]; unmasked shapes carry a 13-bit immediate at [22:10].
func (d *Decoder) decodeB(word uint32, inst *Instruction) {
	inst.ImmShape = ImmShape(bits(word, 28, 3))
	inst.Op = Op(bits(word, 23, 5))
	inst.Dest = uint8(bits(word, 5, 5))
	inst.Src1 = uint8(bits(word, 0, 5))

	if inst.ImmShape.MaskMode() != MaskNone {
		inst.Imm = signedBits(word, 15, 8)
		inst.MaskReg = uint8(bits(word, 10, 5))
	} else {
		inst.Imm = signedBits(word, 10, 13)
	}

	if inst.ImmShape == ImmShapeInvalid || !inst.Op.Valid() || inst.Op == OpShuffle {
		inst.Format = FormatInvalid
		return
	}
	if inst.Op == OpGetLane && !inst.ImmShape.SrcIsVector() {
		inst.Format = FormatInvalid
		return
	}

	inst.Format = FormatB
}

// decodeC decodes memory transfers.
// Format: 10 | load[29] | access[28:25] | offset | src/dest[9:5] | ptr[4:0]
func (d *Decoder) decodeC(word uint32, inst *Instruction) {
	inst.Format = FormatC
	inst.Load = bits(word, 29, 1) == 1
	inst.Access = Access(bits(word, 25, 4))
	inst.Dest = uint8(bits(word, 5, 5))
	inst.Src1 = uint8(bits(word, 0, 5))

	if inst.Access.IsVector() && inst.Access.MaskMode() != MaskNone {
		inst.Imm = signedBits(word, 15, 10)
		inst.MaskReg = uint8(bits(word, 10, 5))
	} else if inst.Access != AccessControl {
		inst.Imm = signedBits(word, 10, 15)
	}
}

// decodeD decodes cache control.
// Format: 1110 | op[27:25] | offset[24:15] | ptr[4:0]
func (d *Decoder) decodeD(word uint32, inst *Instruction) {
	inst.CacheOp = CacheOp(bits(word, 25, 3))
	inst.Src1 = uint8(bits(word, 0, 5))
	inst.Imm = signedBits(word, 15, 10)

	if inst.CacheOp > CacheBarrier {
		inst.Format = FormatInvalid
		return
	}

	inst.Format = FormatD
}

// decodeE decodes branches.
// Format: 1111 | kind[27:25] | offset[24:5] | src[4:0]
func (d *Decoder) decodeE(word uint32, inst *Instruction) {
	inst.Branch = BranchKind(bits(word, 25, 3))
	inst.Imm = signedBits(word, 5, 20)
	inst.Src1 = uint8(bits(word, 0, 5))

	if inst.Branch == BranchInvalid {
		inst.Format = FormatInvalid
		return
	}

	inst.Format = FormatE
}
