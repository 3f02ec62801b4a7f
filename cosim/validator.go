// Package cosim checks the side effects of an emulated core against the
// events produced by an independent hardware model running the same program.
//
// A Validator is an akita hook registered on an emu.Core. For every expected
// event it retires instructions on the named strand until one of them
// produces a side effect, then compares the two field by field. Mismatches are
// recorded and logged; the core keeps its own result so that the run can
// continue.
package cosim

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/strandsim/emu"
)

// DefaultRetryLimit bounds the number of retirements searched for one event.
const DefaultRetryLimit = 500

// Mismatch is a disagreement between the hardware model and the core.
// Actual is nil when the core produced no event within the retry limit.
type Mismatch struct {
	Expected  *emu.Event
	Actual    *emu.Event
	Registers string
}

// PC returns the program counter of the expected event.
func (m Mismatch) PC() uint32 {
	return m.Expected.PC
}

func (m Mismatch) String() string {
	if m.Actual == nil {
		return fmt.Sprintf("no event, hardware: %s", m.Expected)
	}
	return fmt.Sprintf("simulator: %s, hardware: %s", m.Actual, m.Expected)
}

// Validator compares core side effects with expected events.
type Validator struct {
	core       *emu.Core
	logger     *logrus.Logger
	retryLimit int

	expected *emu.Event
	actual   *emu.Event

	checks     int
	mismatches []Mismatch
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger mismatches are reported to.
func WithLogger(logger *logrus.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithRetryLimit sets how many instructions may retire while searching for
// the next event.
func WithRetryLimit(limit int) Option {
	return func(v *Validator) {
		v.retryLimit = limit
	}
}

// NewValidator creates a validator and registers it as a hook on core.
func NewValidator(core *emu.Core, opts ...Option) *Validator {
	v := &Validator{
		core:       core,
		logger:     logrus.StandardLogger(),
		retryLimit: DefaultRetryLimit,
	}

	for _, opt := range opts {
		opt(v)
	}

	core.AcceptHook(v)

	return v
}

// Func implements sim.Hook. Only the first side effect after a check starts
// is captured.
func (v *Validator) Func(ctx sim.HookCtx) {
	if ctx.Pos != emu.HookPosSideEffect || v.expected == nil || v.actual != nil {
		return
	}

	ev, ok := ctx.Item.(*emu.Event)
	if !ok {
		return
	}

	captured := *ev
	v.actual = &captured
}

// Checks returns the number of events checked so far.
func (v *Validator) Checks() int {
	return v.checks
}

// Mismatches returns the mismatches recorded so far.
func (v *Validator) Mismatches() []Mismatch {
	return v.mismatches
}

// CheckMemoryStore expects strand to store values to the line at address.
// mask selects bytes, bit 63 being the first byte of the line.
func (v *Validator) CheckMemoryStore(
	strand int, pc, address uint32, mask uint64, values emu.Vector,
) (bool, error) {
	return v.Check(&emu.Event{
		Kind:    emu.EventMemoryStore,
		Strand:  strand,
		PC:      pc,
		Address: address,
		Mask:    mask,
		Values:  values,
	})
}

// CheckVectorWriteback expects strand to write the lanes of reg in mask.
func (v *Validator) CheckVectorWriteback(
	strand int, pc uint32, reg uint8, mask uint16, values emu.Vector,
) (bool, error) {
	return v.Check(&emu.Event{
		Kind:     emu.EventVectorWriteback,
		Strand:   strand,
		PC:       pc,
		Register: reg,
		Mask:     uint64(mask),
		Values:   values,
	})
}

// CheckScalarWriteback expects strand to write value to reg.
func (v *Validator) CheckScalarWriteback(
	strand int, pc uint32, reg uint8, value uint32,
) (bool, error) {
	ev := &emu.Event{
		Kind:     emu.EventScalarWriteback,
		Strand:   strand,
		PC:       pc,
		Register: reg,
	}
	ev.Values[0] = value

	return v.Check(ev)
}

// Check runs the expected event's strand until it produces a side effect and
// compares it with expected. It reports whether the two matched. An error is
// returned only when the check could not be performed.
func (v *Validator) Check(expected *emu.Event) (bool, error) {
	v.expected = expected
	v.actual = nil
	defer func() {
		v.expected = nil
	}()

	found, err := v.core.RetireUntilSideEffect(expected.Strand, v.retryLimit)
	if err != nil {
		return false, err
	}

	v.checks++

	if !found || v.actual == nil {
		v.logger.WithFields(logrus.Fields{
			"strand":   expected.Strand,
			"expected": expected.String(),
		}).Warn("no event occurred, simulator may be in an infinite loop")
		v.record(expected, nil)
		return false, nil
	}

	if !Match(expected, v.actual) {
		v.logger.WithFields(logrus.Fields{
			"strand":    expected.Strand,
			"pc":        fmt.Sprintf("%08x", v.actual.PC),
			"simulator": v.actual.String(),
			"hardware":  expected.String(),
		}).Error("cosim mismatch")
		v.record(expected, v.actual)
		return false, nil
	}

	return true, nil
}

func (v *Validator) record(expected, actual *emu.Event) {
	regs := emu.FormatRegisters(v.core.Strand(expected.Strand))
	v.logger.Debug(regs)

	v.mismatches = append(v.mismatches, Mismatch{
		Expected:  expected,
		Actual:    actual,
		Registers: regs,
	})
}

// Match reports whether actual satisfies expected. Store values are compared
// for each byte in the mask and vector values for each lane in the mask.
func Match(expected, actual *emu.Event) bool {
	if expected.Kind != actual.Kind || expected.PC != actual.PC {
		return false
	}

	switch expected.Kind {
	case emu.EventMemoryStore:
		if expected.Address != actual.Address || expected.Mask != actual.Mask {
			return false
		}
		for b := 0; b < 64; b++ {
			if expected.Mask&(1<<uint(63-b)) == 0 {
				continue
			}
			if expected.LineByte(b) != actual.LineByte(b) {
				return false
			}
		}
		return true

	case emu.EventVectorWriteback:
		if expected.Register != actual.Register ||
			expected.Mask&0xffff != actual.Mask&0xffff {
			return false
		}
		for lane := range expected.Values {
			if expected.Mask&(1<<uint(lane)) != 0 &&
				expected.Values[lane] != actual.Values[lane] {
				return false
			}
		}
		return true

	case emu.EventScalarWriteback:
		return expected.Register == actual.Register &&
			expected.Values[0] == actual.Values[0]

	default:
		return false
	}
}
