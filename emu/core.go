// Package emu provides functional emulation of the strand vector processor.
//
// A Core holds four strands that share one memory. Strands retire one
// instruction each in round-robin order. Every architecturally observable
// side effect is published through akita hooks at HookPosSideEffect, which
// is how tracing and cosimulation observe execution.
package emu

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/strandsim/insts"
)

// Errors recorded when the core halts abnormally.
var (
	ErrAccessViolation    = errors.New("access violation")
	ErrAllStrandsDisabled = errors.New("all strands disabled")
	ErrInvalidStrand      = errors.New("invalid strand")
)

// StopReason tells why RunQuantum returned.
type StopReason uint8

// Stop reasons.
const (
	StopCompleted StopReason = iota
	StopBreakpoint
	StopHalted
)

func (r StopReason) String() string {
	switch r {
	case StopCompleted:
		return "completed"
	case StopBreakpoint:
		return "breakpoint"
	case StopHalted:
		return "halted"
	default:
		return fmt.Sprintf("StopReason(%d)", uint8(r))
	}
}

// Core executes instructions for four hardware strands.
// It is not safe for concurrent use.
type Core struct {
	*sim.HookableBase

	memory  *Memory
	decoder *insts.Decoder
	strands []*Strand
	inst    insts.Instruction

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	device Device
	stdout io.Writer
	logger *logrus.Logger

	memorySize   uint32
	enableMask   uint32
	faultHandler uint32

	halted bool
	err    error

	currentStrand  int
	singleStepping bool
	breakpoints    map[uint32]*Breakpoint
	unknown        map[uint32]bool

	instructionCount uint64
	sideEffectSeen   bool
}

// CoreOption is a functional option for configuring the Core.
type CoreOption func(*Core)

// WithMemorySize sets the memory size in bytes.
func WithMemorySize(size uint32) CoreOption {
	return func(c *Core) {
		c.memorySize = size
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *logrus.Logger) CoreOption {
	return func(c *Core) {
		c.logger = logger
	}
}

// WithStdout sets the writer the default console device prints to.
func WithStdout(w io.Writer) CoreOption {
	return func(c *Core) {
		c.stdout = w
	}
}

// WithDevice replaces the device behind the device window.
func WithDevice(d Device) CoreOption {
	return func(c *Core) {
		c.device = d
	}
}

// NewCore creates a core with strand 0 enabled and every PC at 0.
func NewCore(opts ...CoreOption) *Core {
	c := &Core{
		HookableBase: sim.NewHookableBase(),
		decoder:      insts.NewDecoder(),
		stdout:       os.Stdout,
		logger:       logrus.StandardLogger(),
		memorySize:   DefaultMemorySize,
		enableMask:   1,
		breakpoints:  make(map[uint32]*Breakpoint),
		unknown:      make(map[uint32]bool),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.device == nil {
		c.device = NewConsoleDevice(c.stdout)
	}

	c.memory = NewMemory(c.memorySize)
	c.strands = make([]*Strand, NumStrands)
	for i := range c.strands {
		c.strands[i] = newStrand(i, c)
	}

	// Create execution units
	c.alu = NewALU()
	c.lsu = NewLoadStoreUnit(c.memory, c.device, c.strands, c)
	c.branchUnit = NewBranchUnit()

	return c
}

// Memory returns the core's memory.
func (c *Core) Memory() *Memory {
	return c.memory
}

// Strand returns a strand by index, or nil if id is not a strand.
func (c *Core) Strand(id int) *Strand {
	if id < 0 || id >= NumStrands {
		return nil
	}
	return c.strands[id]
}

// InstructionCount returns the number of instructions retired.
func (c *Core) InstructionCount() uint64 {
	return c.instructionCount
}

// StrandEnableMask returns the mask of running strands.
func (c *Core) StrandEnableMask() uint32 {
	return c.enableMask
}

// Halted reports whether the core has stopped.
func (c *Core) Halted() bool {
	return c.halted
}

// Err returns the cause of an abnormal halt, or nil.
func (c *Core) Err() error {
	return c.err
}

// CurrentStrand returns the strand selected for debugging.
func (c *Core) CurrentStrand() int {
	return c.currentStrand
}

// SetCurrentStrand selects the strand used by debugging operations.
func (c *Core) SetCurrentStrand(id int) error {
	if id < 0 || id >= NumStrands {
		return fmt.Errorf("%w: %d", ErrInvalidStrand, id)
	}
	c.currentStrand = id
	return nil
}

// PC returns the program counter of the current strand.
func (c *Core) PC() uint32 {
	return c.strands[c.currentStrand].regFile.PC
}

// ScalarRegister reads a scalar register of the current strand.
func (c *Core) ScalarRegister(reg uint8) uint32 {
	return c.strands[c.currentStrand].regFile.ReadScalar(reg)
}

// VectorRegister reads a vector register of the current strand.
func (c *Core) VectorRegister(reg uint8) Vector {
	return c.strands[c.currentStrand].regFile.ReadVector(reg)
}

// ReadMemoryByte reads one byte of memory.
func (c *Core) ReadMemoryByte(addr uint32) (byte, error) {
	return c.memory.Read8(addr)
}

// RunQuantum retires up to instructions rounds, each retiring one
// instruction on every enabled strand.
func (c *Core) RunQuantum(instructions int) StopReason {
	c.singleStepping = false

	for i := 0; i < instructions; i++ {
		for id, s := range c.strands {
			if c.halted {
				return StopHalted
			}
			if c.enableMask&(1<<uint(id)) == 0 {
				continue
			}
			if !c.retire(s) {
				return StopBreakpoint
			}
		}
	}

	if c.halted {
		return StopHalted
	}

	return StopCompleted
}

// SingleStep retires one instruction on the current strand. A breakpoint at
// the PC does not stop it.
func (c *Core) SingleStep() StopReason {
	if c.halted {
		return StopHalted
	}

	c.singleStepping = true
	c.retire(c.strands[c.currentStrand])
	c.singleStepping = false

	if c.halted {
		return StopHalted
	}

	return StopCompleted
}

// RetireUntilSideEffect retires instructions on one strand until one of them
// produces a side effect or limit instructions have retired. It reports
// whether a side effect occurred.
func (c *Core) RetireUntilSideEffect(strand, limit int) (bool, error) {
	if strand < 0 || strand >= NumStrands {
		return false, fmt.Errorf("%w: %d", ErrInvalidStrand, strand)
	}

	s := c.strands[strand]
	c.sideEffectSeen = false
	for i := 0; i < limit && !c.sideEffectSeen && !c.halted; i++ {
		c.retire(s)
	}

	return c.sideEffectSeen, nil
}

// retire fetches, decodes and executes one instruction. It returns false when
// a breakpoint stops execution before the instruction runs.
func (c *Core) retire(s *Strand) bool {
	pc := s.regFile.PC

	word, err := c.memory.Read32(pc &^ 3)
	if err != nil {
		s.pc = pc
		c.accessViolation(s, err)
		return true
	}

	s.pc = pc
	s.regFile.PC = pc + 4

	if word == insts.BreakpointWord {
		original, hit, ok := c.resolveBreakpoint(s, pc)
		if hit {
			s.regFile.PC = pc
			c.currentStrand = s.id
			c.logger.WithFields(logrus.Fields{
				"strand": s.id,
				"pc":     fmt.Sprintf("%08x", pc),
			}).Info("hit breakpoint")
			return false
		}
		if ok {
			word = original
		}
	}

	c.instructionCount++
	c.execute(s, word)

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosRetire,
			Item:   &Retirement{Strand: s.id, PC: pc, Word: word},
		})
	}

	return true
}

// execute dispatches a decoded instruction to its execution unit.
func (c *Core) execute(s *Strand, word uint32) {
	inst := &c.inst
	c.decoder.DecodeInto(word, inst)

	switch inst.Format {
	case insts.FormatNop, insts.FormatD:
		// No architectural effect
	case insts.FormatA:
		c.alu.ExecuteA(s, inst)
	case insts.FormatB:
		c.alu.ExecuteB(s, inst)
	case insts.FormatC:
		if inst.Access == insts.AccessControl {
			c.executeControl(s, inst)
			return
		}
		if err := c.lsu.Execute(s, inst); err != nil {
			c.memoryError(s, err)
		}
	case insts.FormatE:
		c.branchUnit.Execute(s, inst)
	default:
		c.reportUnknown(s, word)
	}
}

// memoryError raises a fault for misaligned accesses and halts the core for
// everything else.
func (c *Core) memoryError(s *Strand, err error) {
	s.transfer.Reset()

	if errors.Is(err, errMisaligned) {
		c.logger.WithFields(logrus.Fields{
			"strand": s.id,
			"pc":     fmt.Sprintf("%08x", s.pc),
		}).Debug("misaligned access fault")
		c.raiseFault(s, FaultInvalidAccess)
		return
	}

	c.accessViolation(s, err)
}

func (c *Core) accessViolation(s *Strand, err error) {
	c.logger.WithFields(logrus.Fields{
		"strand": s.id,
		"pc":     fmt.Sprintf("%08x", s.pc),
	}).WithError(err).Error("access violation")

	c.currentStrand = s.id
	c.halt(err)
}

func (c *Core) reportUnknown(s *Strand, word uint32) {
	if c.unknown[s.pc] {
		return
	}
	c.unknown[s.pc] = true

	c.logger.WithFields(logrus.Fields{
		"strand":      s.id,
		"pc":          fmt.Sprintf("%08x", s.pc),
		"instruction": fmt.Sprintf("%08x", word),
	}).Warn("unknown instruction")
}

// halt stops the core. The first non-nil cause is kept.
func (c *Core) halt(err error) {
	c.halted = true
	if err != nil && c.err == nil {
		c.err = err
	}
}

// sideEffect publishes an observable side effect to the hooks.
func (c *Core) sideEffect(ev *Event) {
	c.sideEffectSeen = true

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosSideEffect,
			Item:   ev,
		})
	}
}
