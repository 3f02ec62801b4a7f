package emu

import "github.com/sarchlab/strandsim/insts"

// NumStrands is the number of hardware strands in a Core.
const NumStrands = 4

// FaultReason is the value reported by the fault reason control register.
type FaultReason uint32

// Fault reasons.
const (
	FaultReset FaultReason = iota
	FaultIllegalInstruction
	FaultInvalidAccess
	FaultInterrupt
)

// TransferPhase is the state of a multi-cycle vector transfer.
type TransferPhase uint8

// Transfer phases.
const (
	TransferIdle TransferPhase = iota
	TransferActive
)

// Transfer tracks a strided or scatter/gather vector transfer that moves one
// lane per retirement, highest lane first.
type Transfer struct {
	Phase TransferPhase

	// Lane is the most recently transferred lane while active.
	Lane int
}

// Active reports whether a transfer is in progress.
func (t Transfer) Active() bool {
	return t.Phase == TransferActive
}

// Reset returns the transfer to idle.
func (t *Transfer) Reset() {
	t.Phase = TransferIdle
	t.Lane = 0
}

// Advance selects the next lane of mask to transfer. It returns -1 when no
// lane remains. done is true when the selected lane is the last one, in which
// case the transfer is back to idle.
func (t *Transfer) Advance(mask uint16) (lane int, done bool) {
	start := insts.NumLanes - 1
	if t.Active() {
		start = t.Lane - 1
	}

	lane = highestLane(mask, start)
	if lane < 0 {
		t.Reset()
		return -1, true
	}

	if highestLane(mask, lane-1) < 0 {
		t.Reset()
		return lane, true
	}

	t.Phase = TransferActive
	t.Lane = lane

	return lane, false
}

// highestLane returns the highest lane at or below from that is set in mask.
func highestLane(mask uint16, from int) int {
	for lane := from; lane >= 0; lane-- {
		if mask&(1<<lane) != 0 {
			return lane
		}
	}
	return -1
}

// Strand is one hardware thread context.
type Strand struct {
	id      int
	regFile *RegFile
	sink    eventSink

	// pc is the address of the instruction being retired.
	pc uint32

	linkedLine uint32
	linked     bool

	transfer Transfer

	faultPC         uint32
	faultReason     FaultReason
	interruptEnable uint32
}

// eventSink receives the side effects produced by a strand.
type eventSink interface {
	sideEffect(ev *Event)
}

func newStrand(id int, sink eventSink) *Strand {
	return &Strand{
		id:          id,
		regFile:     &RegFile{},
		sink:        sink,
		faultReason: FaultReset,
	}
}

// ID returns the strand index.
func (s *Strand) ID() int {
	return s.id
}

// RegFile returns the strand's register file.
func (s *Strand) RegFile() *RegFile {
	return s.regFile
}

// Transfer returns the strand's multi-cycle transfer state.
func (s *Strand) Transfer() Transfer {
	return s.transfer
}

// LinkedLine returns the cache line recorded by the last load-linked and
// whether it is still valid.
func (s *Strand) LinkedLine() (uint32, bool) {
	return s.linkedLine, s.linked
}

// FaultPC returns the address of the last faulting instruction.
func (s *Strand) FaultPC() uint32 {
	return s.faultPC
}

// FaultReason returns the cause of the last fault.
func (s *Strand) FaultReason() FaultReason {
	return s.faultReason
}

// setScalar writes a scalar register and reports the writeback.
func (s *Strand) setScalar(reg uint8, value uint32) {
	s.regFile.WriteScalar(reg, value)

	ev := &Event{
		Kind:     EventScalarWriteback,
		Strand:   s.id,
		PC:       s.pc,
		Register: reg,
	}
	ev.Values[0] = value
	s.sink.sideEffect(ev)
}

// setVector writes the masked lanes of a vector register and reports the
// writeback.
func (s *Strand) setVector(reg uint8, mask uint16, values Vector) {
	s.regFile.WriteVector(reg, mask, values)

	s.sink.sideEffect(&Event{
		Kind:     EventVectorWriteback,
		Strand:   s.id,
		PC:       s.pc,
		Register: reg,
		Mask:     uint64(mask),
		Values:   values,
	})
}

// link records a load-linked to the line containing addr.
func (s *Strand) link(addr uint32) {
	s.linkedLine = addr / 64
	s.linked = true
}

// invalidateLink drops the link if it refers to the line containing addr.
func (s *Strand) invalidateLink(addr uint32) {
	if s.linked && s.linkedLine == addr/64 {
		s.linked = false
	}
}
