package emu

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sarchlab/strandsim/insts"
)

// Breakpoint errors.
var (
	ErrBreakpointExists  = errors.New("breakpoint already set")
	ErrNoBreakpoint      = errors.New("no breakpoint at address")
	ErrInvalidBreakpoint = errors.New("invalid breakpoint address")
)

// Breakpoint is an instruction replaced by the breakpoint trap word.
type Breakpoint struct {
	Address  uint32
	Original uint32

	// restart is set after the breakpoint reports a hit so that the next
	// retirement at this address executes the original instruction.
	restart bool
}

// SetBreakpoint replaces the instruction at pc with the trap word.
func (c *Core) SetBreakpoint(pc uint32) error {
	if pc&3 != 0 || !c.memory.InRange(pc, 4) {
		return fmt.Errorf("%w: 0x%08x", ErrInvalidBreakpoint, pc)
	}
	if _, ok := c.breakpoints[pc]; ok {
		return fmt.Errorf("%w: 0x%08x", ErrBreakpointExists, pc)
	}

	original, err := c.memory.Read32(pc)
	if err != nil {
		return err
	}
	if original == insts.BreakpointWord {
		original = 0
	}

	if err := c.memory.Write32(pc, insts.BreakpointWord); err != nil {
		return err
	}

	c.breakpoints[pc] = &Breakpoint{Address: pc, Original: original}

	return nil
}

// ClearBreakpoint restores the instruction at pc.
func (c *Core) ClearBreakpoint(pc uint32) error {
	bp, ok := c.breakpoints[pc]
	if !ok {
		return fmt.Errorf("%w: 0x%08x", ErrNoBreakpoint, pc)
	}

	if err := c.memory.Write32(pc, bp.Original); err != nil {
		return err
	}

	delete(c.breakpoints, pc)

	return nil
}

// Breakpoints returns the breakpoint addresses in ascending order.
func (c *Core) Breakpoints() []uint32 {
	addrs := make([]uint32, 0, len(c.breakpoints))
	for addr := range c.breakpoints {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	return addrs
}

// resolveBreakpoint decides what a retirement of the trap word at pc does.
// It returns the word to execute, or hit set when execution must stop.
func (c *Core) resolveBreakpoint(s *Strand, pc uint32) (word uint32, hit bool, ok bool) {
	bp, ok := c.breakpoints[pc]
	if !ok {
		return insts.BreakpointWord, false, false
	}

	if bp.restart || c.singleStepping || s.transfer.Active() {
		bp.restart = false
		return bp.Original, false, true
	}

	bp.restart = true

	return 0, true, true
}
