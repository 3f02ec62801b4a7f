package insts

// Encoders build instruction words. They are used by the built-in workloads
// and by tests; field values are truncated to their encoded width.

// EncodeA encodes a register/register arithmetic instruction.
func EncodeA(op Op, shape Shape, dest, src1, src2, mask uint8) uint32 {
	return 0xc0000000 |
		uint32(shape&7)<<26 |
		uint32(op&0x3f)<<20 |
		uint32(src2&0x1f)<<15 |
		uint32(mask&0x1f)<<10 |
		uint32(dest&0x1f)<<5 |
		uint32(src1&0x1f)
}

// EncodeB encodes a register/immediate arithmetic instruction. The mask
// register is only encoded for masked shapes.
func EncodeB(op Op, shape ImmShape, dest, src1 uint8, imm int32, mask uint8) uint32 {
	word := uint32(shape&7)<<28 |
		uint32(op&0x1f)<<23 |
		uint32(dest&0x1f)<<5 |
		uint32(src1&0x1f)

	if shape.MaskMode() != MaskNone {
		word |= (uint32(imm)&0xff)<<15 | uint32(mask&0x1f)<<10
	} else {
		word |= (uint32(imm) & 0x1fff) << 10
	}

	return word
}

// EncodeMem encodes a memory or control register transfer. For masked vector
// accesses the offset is 10 bits wide; otherwise it is 15 bits wide.
func EncodeMem(load bool, access Access, reg, ptr uint8, offset int32, mask uint8) uint32 {
	word := uint32(0x80000000) |
		uint32(access&0xf)<<25 |
		uint32(reg&0x1f)<<5 |
		uint32(ptr&0x1f)

	if load {
		word |= 1 << 29
	}

	if access.IsVector() && access.MaskMode() != MaskNone {
		word |= (uint32(offset)&0x3ff)<<15 | uint32(mask&0x1f)<<10
	} else {
		word |= (uint32(offset) & 0x7fff) << 10
	}

	return word
}

// EncodeLoad encodes an unmasked load of reg from ptr+offset.
func EncodeLoad(access Access, reg, ptr uint8, offset int32) uint32 {
	return EncodeMem(true, access, reg, ptr, offset, 0)
}

// EncodeStore encodes an unmasked store of reg to ptr+offset.
func EncodeStore(access Access, reg, ptr uint8, offset int32) uint32 {
	return EncodeMem(false, access, reg, ptr, offset, 0)
}

// EncodeGetControl encodes a transfer from control register cr to reg.
func EncodeGetControl(reg, cr uint8) uint32 {
	return EncodeMem(true, AccessControl, reg, cr, 0, 0)
}

// EncodeSetControl encodes a transfer from reg to control register cr.
func EncodeSetControl(cr, reg uint8) uint32 {
	return EncodeMem(false, AccessControl, reg, cr, 0, 0)
}

// EncodeHalt encodes a write to the core halt control register.
func EncodeHalt() uint32 {
	return EncodeSetControl(31, 0)
}

// EncodeCache encodes a cache control instruction.
func EncodeCache(op CacheOp, ptr uint8, offset int32) uint32 {
	return 0xe0000000 |
		uint32(op&7)<<25 |
		(uint32(offset)&0x3ff)<<15 |
		uint32(ptr&0x1f)
}

// EncodeBranch encodes a branch. The offset is in bytes relative to the
// instruction that follows the branch.
func EncodeBranch(kind BranchKind, src uint8, offset int32) uint32 {
	return 0xf0000000 |
		uint32(kind&7)<<25 |
		(uint32(offset)&0xfffff)<<5 |
		uint32(src&0x1f)
}
