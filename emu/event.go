package emu

import (
	"fmt"
	"strings"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/strandsim/insts"
)

// Hook positions invoked by the Core.
var (
	// HookPosSideEffect is invoked with an *Event for every architecturally
	// observable side effect: scalar and vector register writebacks and
	// memory stores.
	HookPosSideEffect = &sim.HookPos{Name: "SideEffect"}

	// HookPosRetire is invoked with a *Retirement after every retired
	// instruction.
	HookPosRetire = &sim.HookPos{Name: "Retire"}
)

// EventKind identifies the type of side effect.
type EventKind uint8

// Side effect kinds.
const (
	EventMemoryStore EventKind = iota
	EventVectorWriteback
	EventScalarWriteback
)

func (k EventKind) String() string {
	switch k {
	case EventMemoryStore:
		return "store"
	case EventVectorWriteback:
		return "vwriteback"
	case EventScalarWriteback:
		return "swriteback"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event describes one observable side effect of an instruction.
type Event struct {
	Kind   EventKind
	Strand int

	// PC is the address of the instruction that caused the effect.
	PC uint32

	// Register is the destination of a writeback.
	Register uint8

	// Address is the 64-byte aligned line address of a store.
	Address uint32

	// Mask is the lane mask of a vector writeback, or the byte mask of a
	// store where bit 63-b selects byte b of the line.
	Mask uint64

	// Values holds lane values. Scalar writebacks use Values[0]. Stores
	// place the word at line offset 4*i in lane 15-i.
	Values Vector
}

// ScalarValue returns the value of a scalar writeback.
func (e *Event) ScalarValue() uint32 {
	return e.Values[0]
}

// LineByte returns byte b of the line written by a store.
func (e *Event) LineByte(b int) uint8 {
	return uint8(e.Values[insts.NumLanes-1-b/4] >> (uint(b%4) * 8))
}

// String formats the event the way trace and mismatch reports print it.
func (e *Event) String() string {
	return fmt.Sprintf("%08x %s", e.PC, e.Effect())
}

// Effect formats the destination and values of the event.
func (e *Event) Effect() string {
	var sb strings.Builder

	switch e.Kind {
	case EventMemoryStore:
		fmt.Fprintf(&sb, "MEM[%x]{%016x} <= ", e.Address, e.Mask)
		writeLanes(&sb, e.Values)
	case EventVectorWriteback:
		fmt.Fprintf(&sb, "v%d{%04x} <= ", e.Register, e.Mask&0xffff)
		writeLanes(&sb, e.Values)
	case EventScalarWriteback:
		fmt.Fprintf(&sb, "s%d <= %08x", e.Register, e.Values[0])
	}

	return sb.String()
}

// writeLanes prints lanes from 15 down to 0.
func writeLanes(sb *strings.Builder, v Vector) {
	for lane := insts.NumLanes - 1; lane >= 0; lane-- {
		if lane != insts.NumLanes-1 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(sb, "%08x", v[lane])
	}
}

// Retirement is the item passed to HookPosRetire.
type Retirement struct {
	Strand int
	PC     uint32
	Word   uint32
}

// storeByteMask returns the byte mask covering size bytes at addr.
func storeByteMask(addr uint32, size uint32) uint64 {
	offset := addr & 63
	bits := uint64(1)<<size - 1
	return bits << (64 - uint64(offset) - uint64(size))
}

// blockByteMask expands a lane mask to the byte mask of a block store.
func blockByteMask(mask uint16) uint64 {
	var byteMask uint64
	for lane := 0; lane < insts.NumLanes; lane++ {
		if mask&(1<<lane) != 0 {
			byteMask |= 0xf << (uint(lane) * 4)
		}
	}
	return byteMask
}
