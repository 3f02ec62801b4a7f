// Package emu provides functional emulation of the strand vector processor.
package emu

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// DefaultMemorySize is the size of the memory space when none is configured.
const DefaultMemorySize uint32 = 0x1000000

// Memory is the flat byte-addressable memory shared by all strands. Words are
// stored little-endian.
type Memory struct {
	storage *mem.Storage
	size    uint64
}

// NewMemory creates a zero-filled memory of the given size in bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{
		storage: mem.NewStorage(uint64(size)),
		size:    uint64(size),
	}
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return uint32(m.size)
}

// InRange reports whether n bytes starting at addr lie inside memory.
func (m *Memory) InRange(addr, n uint32) bool {
	return uint64(addr)+uint64(n) <= m.size
}

// ReadBytes reads n bytes starting at addr.
func (m *Memory) ReadBytes(addr, n uint32) ([]byte, error) {
	if !m.InRange(addr, n) {
		return nil, fmt.Errorf("%w: read 0x%08x (%d bytes)", ErrAccessViolation, addr, n)
	}

	return m.storage.Read(uint64(addr), uint64(n))
}

// WriteBytes writes data starting at addr.
func (m *Memory) WriteBytes(addr uint32, data []byte) error {
	if !m.InRange(addr, uint32(len(data))) {
		return fmt.Errorf("%w: write 0x%08x (%d bytes)", ErrAccessViolation, addr, len(data))
	}

	return m.storage.Write(uint64(addr), data)
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) (uint8, error) {
	b, err := m.ReadBytes(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Read16 reads a little-endian 16-bit value.
func (m *Memory) Read16(addr uint32) (uint16, error) {
	b, err := m.ReadBytes(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Read32 reads a little-endian 32-bit word.
func (m *Memory) Read32(addr uint32) (uint32, error) {
	b, err := m.ReadBytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value uint8) error {
	return m.WriteBytes(addr, []byte{value})
}

// Write16 writes a little-endian 16-bit value.
func (m *Memory) Write16(addr uint32, value uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], value)
	return m.WriteBytes(addr, b[:])
}

// Write32 writes a little-endian 32-bit word.
func (m *Memory) Write32(addr uint32, value uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	return m.WriteBytes(addr, b[:])
}

// LoadProgram copies a program image into memory at the given address.
func (m *Memory) LoadProgram(addr uint32, program []byte) error {
	return m.WriteBytes(addr, program)
}
