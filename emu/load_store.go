// Package emu provides functional emulation of the strand vector processor.
package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/strandsim/insts"
)

// errMisaligned marks an access that raises a strand fault instead of halting
// the core.
var errMisaligned = errors.New("misaligned access")

// LoadStoreUnit implements scalar, vector and atomic memory transfers.
type LoadStoreUnit struct {
	memory  *Memory
	device  Device
	strands []*Strand
	sink    eventSink
}

// NewLoadStoreUnit creates a LoadStoreUnit connected to the given memory and
// device. Stores invalidate the links of every strand in strands.
func NewLoadStoreUnit(memory *Memory, device Device, strands []*Strand, sink eventSink) *LoadStoreUnit {
	return &LoadStoreUnit{
		memory:  memory,
		device:  device,
		strands: strands,
		sink:    sink,
	}
}

// Execute performs a Format C memory transfer other than a control register
// transfer. It returns an error wrapping ErrAccessViolation for out of range
// accesses and errMisaligned for misaligned ones.
func (lsu *LoadStoreUnit) Execute(s *Strand, inst *insts.Instruction) error {
	switch inst.Access.Pattern() {
	case insts.PatternNone:
		return lsu.executeScalar(s, inst)
	case insts.PatternBlock:
		return lsu.executeBlock(s, inst)
	default:
		return lsu.executeMultiCycle(s, inst)
	}
}

func (lsu *LoadStoreUnit) executeScalar(s *Strand, inst *insts.Instruction) error {
	regs := s.regFile
	addr := regs.ReadScalar(inst.Src1) + uint32(inst.Imm)

	if InDeviceWindow(addr) {
		return lsu.executeDevice(s, inst, addr)
	}

	if inst.Load {
		value, err := lsu.load(s, inst.Access, addr)
		if err != nil {
			return err
		}
		s.setScalar(inst.Dest, value)
		return nil
	}

	value := regs.ReadScalar(inst.Dest)

	switch inst.Access {
	case insts.AccessByte, insts.AccessByteSigned:
		return lsu.store(s, addr, 1, value)
	case insts.AccessShort, insts.AccessShortSigned:
		return lsu.store(s, addr, 2, value)
	case insts.AccessWord:
		return lsu.store(s, addr, 4, value)
	case insts.AccessLinked:
		return lsu.storeConditional(s, inst.Dest, addr, value)
	}

	return nil
}

// load reads a scalar value of the given access width.
func (lsu *LoadStoreUnit) load(s *Strand, access insts.Access, addr uint32) (uint32, error) {
	size := accessSize(access)
	if !lsu.memory.InRange(addr, size) {
		return 0, fmt.Errorf("%w: load 0x%08x", ErrAccessViolation, addr)
	}
	if addr&(size-1) != 0 {
		return 0, errMisaligned
	}

	switch access {
	case insts.AccessByte:
		v, err := lsu.memory.Read8(addr)
		return uint32(v), err
	case insts.AccessByteSigned:
		v, err := lsu.memory.Read8(addr)
		return uint32(int32(int8(v))), err
	case insts.AccessShort:
		v, err := lsu.memory.Read16(addr)
		return uint32(v), err
	case insts.AccessShortSigned:
		v, err := lsu.memory.Read16(addr)
		return uint32(int32(int16(v))), err
	case insts.AccessLinked:
		s.link(addr)
	}

	return lsu.memory.Read32(addr)
}

func accessSize(access insts.Access) uint32 {
	switch access {
	case insts.AccessByte, insts.AccessByteSigned:
		return 1
	case insts.AccessShort, insts.AccessShortSigned:
		return 2
	default:
		return 4
	}
}

// store writes size bytes of value to memory and reports the store.
func (lsu *LoadStoreUnit) store(s *Strand, addr, size, value uint32) error {
	if !lsu.memory.InRange(addr, size) {
		return fmt.Errorf("%w: store 0x%08x", ErrAccessViolation, addr)
	}
	if addr&(size-1) != 0 {
		return errMisaligned
	}

	var err error
	switch size {
	case 1:
		err = lsu.memory.Write8(addr, uint8(value))
	case 2:
		err = lsu.memory.Write16(addr, uint16(value))
	default:
		err = lsu.memory.Write32(addr, value)
	}
	if err != nil {
		return err
	}

	ev := &Event{
		Kind:    EventMemoryStore,
		Strand:  s.id,
		PC:      s.pc,
		Address: addr &^ 63,
		Mask:    storeByteMask(addr, size),
	}
	offset := addr & 63
	sizeMask := uint32(1)<<(size*8) - 1
	ev.Values[insts.NumLanes-1-int(offset/4)] = (value & sizeMask) << ((offset % 4) * 8)

	lsu.invalidate(addr)
	lsu.sink.sideEffect(ev)

	return nil
}

// storeConditional completes a load-linked/store-conditional pair. The
// success flag written to reg is not a reported side effect.
func (lsu *LoadStoreUnit) storeConditional(s *Strand, reg uint8, addr, value uint32) error {
	line, ok := s.LinkedLine()
	if !ok || line != addr/64 {
		s.regFile.WriteScalar(reg, 0)
		return nil
	}

	if err := lsu.store(s, addr, 4, value); err != nil {
		return err
	}

	s.regFile.WriteScalar(reg, 1)

	return nil
}

// invalidate drops every strand's link to the line containing addr.
func (lsu *LoadStoreUnit) invalidate(addr uint32) {
	for _, st := range lsu.strands {
		st.invalidateLink(addr)
	}
}

// executeDevice routes a scalar access in the device window. Only word
// accesses reach the device; other widths read 0 and ignore stores.
func (lsu *LoadStoreUnit) executeDevice(s *Strand, inst *insts.Instruction, addr uint32) error {
	if addr&3 != 0 && inst.Access == insts.AccessWord {
		return errMisaligned
	}

	if inst.Load {
		var value uint32
		if inst.Access == insts.AccessWord {
			value = lsu.device.ReadWord(addr)
		}
		s.setScalar(inst.Dest, value)
		return nil
	}

	switch inst.Access {
	case insts.AccessWord:
		lsu.device.WriteWord(addr, s.regFile.ReadScalar(inst.Dest))
	case insts.AccessLinked:
		s.regFile.WriteScalar(inst.Dest, 0)
	}

	return nil
}

// executeBlock transfers 16 consecutive words. Lane 15 is at the lowest
// address.
func (lsu *LoadStoreUnit) executeBlock(s *Strand, inst *insts.Instruction) error {
	regs := s.regFile
	base := regs.ReadScalar(inst.Src1) + uint32(inst.Imm)
	mask := laneMask(regs, inst)

	if !inst.Load && mask == 0 {
		return nil
	}

	if !lsu.memory.InRange(base, 64) {
		return fmt.Errorf("%w: block access 0x%08x", ErrAccessViolation, base)
	}
	if base&63 != 0 {
		return errMisaligned
	}

	if inst.Load {
		var values Vector
		for lane := range values {
			v, err := lsu.memory.Read32(base + uint32(insts.NumLanes-1-lane)*4)
			if err != nil {
				return err
			}
			values[lane] = v
		}
		s.setVector(inst.Dest, mask, values)
		return nil
	}

	values := regs.ReadVector(inst.Dest)
	for lane := range values {
		if mask&(1<<lane) == 0 {
			continue
		}
		addr := base + uint32(insts.NumLanes-1-lane)*4
		if err := lsu.memory.Write32(addr, values[lane]); err != nil {
			return err
		}
	}

	lsu.invalidate(base)
	lsu.sink.sideEffect(&Event{
		Kind:    EventMemoryStore,
		Strand:  s.id,
		PC:      s.pc,
		Address: base,
		Mask:    blockByteMask(mask),
		Values:  values,
	})

	return nil
}

// executeMultiCycle transfers one lane of a strided or scatter/gather access
// per call. While lanes remain, the PC is moved back so that the same
// instruction retires again.
func (lsu *LoadStoreUnit) executeMultiCycle(s *Strand, inst *insts.Instruction) error {
	regs := s.regFile
	mask := laneMask(regs, inst)

	lane, done := s.transfer.Advance(mask)
	if lane < 0 {
		return nil
	}

	var addr uint32
	if inst.Access.Pattern() == insts.PatternStrided {
		addr = regs.ReadScalar(inst.Src1) + uint32(int32(insts.NumLanes-1-lane)*inst.Imm)
	} else {
		addr = regs.ReadVector(inst.Src1)[lane] + uint32(inst.Imm)
	}

	if err := lsu.transferLane(s, inst, lane, addr); err != nil {
		s.transfer.Reset()
		return err
	}

	if !done {
		regs.PC = s.pc
	}

	return nil
}

func (lsu *LoadStoreUnit) transferLane(s *Strand, inst *insts.Instruction, lane int, addr uint32) error {
	if inst.Load {
		value, err := lsu.load(s, insts.AccessWord, addr)
		if err != nil {
			return err
		}

		var values Vector
		values[lane] = value
		s.setVector(inst.Dest, 1<<lane, values)

		return nil
	}

	return lsu.store(s, addr, 4, s.regFile.ReadVector(inst.Dest)[lane])
}
