package emu

import (
	"fmt"

	"github.com/sarchlab/strandsim/insts"
)

// Control register indices.
const (
	CRStrandID        = 0
	CRFaultHandler    = 1
	CRFaultPC         = 2
	CRFaultReason     = 3
	CRInterruptEnable = 4
	CRHaltStrand      = 29
	CRStrandEnable    = 30
	CRHalt            = 31
)

// executeControl performs a control register transfer. Reads do not produce
// a reported side effect. Unassigned registers read 0 and ignore writes.
func (c *Core) executeControl(s *Strand, inst *insts.Instruction) {
	index := inst.Src1
	regs := s.regFile

	if inst.Load {
		regs.WriteScalar(inst.Dest, c.readControl(s, index))
		return
	}

	value := regs.ReadScalar(inst.Dest)

	switch index {
	case CRFaultHandler:
		c.faultHandler = value
	case CRInterruptEnable:
		s.interruptEnable = value
	case CRHaltStrand:
		c.setEnableMask(c.enableMask &^ (1 << uint(s.id)))
	case CRStrandEnable:
		c.setEnableMask(value)
	case CRHalt:
		c.halt(nil)
	}
}

func (c *Core) readControl(s *Strand, index uint8) uint32 {
	switch index {
	case CRStrandID:
		return uint32(s.id)
	case CRFaultHandler:
		return c.faultHandler
	case CRFaultPC:
		return s.faultPC
	case CRFaultReason:
		return uint32(s.faultReason)
	case CRInterruptEnable:
		return s.interruptEnable
	case CRStrandEnable:
		return c.enableMask
	default:
		return 0
	}
}

// setEnableMask updates the strand enable mask and halts the core once no
// strand is left running.
func (c *Core) setEnableMask(mask uint32) {
	c.enableMask = mask & (1<<NumStrands - 1)
	if c.enableMask == 0 {
		c.logger.Info("strand enable mask is now zero")
		c.halt(ErrAllStrandsDisabled)
	}
}

// raiseFault transfers a strand to the fault handler.
func (c *Core) raiseFault(s *Strand, reason FaultReason) {
	s.faultPC = s.pc
	s.faultReason = reason
	s.interruptEnable = 0
	s.regFile.PC = c.faultHandler
}

// Interrupt delivers an external interrupt to a strand.
func (c *Core) Interrupt(strand int) error {
	if strand < 0 || strand >= NumStrands {
		return fmt.Errorf("%w: %d", ErrInvalidStrand, strand)
	}

	s := c.strands[strand]
	s.transfer.Reset()
	s.pc = s.regFile.PC
	c.raiseFault(s, FaultInterrupt)

	return nil
}
