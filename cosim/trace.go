package cosim

import (
	"errors"
	"fmt"
	"io"
	"math/bits"
	"strconv"
	"strings"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/strandsim/emu"
	"github.com/sarchlab/strandsim/insts"
)

// HaltedLine terminates a hardware trace.
const HaltedLine = "***HALTED***"

// Trace errors.
var (
	ErrBadVector = errors.New("malformed vector")
	ErrNotHalted = errors.New("trace ended before the program halted")
	ErrMismatch  = errors.New("cosim mismatch")
)

// vectorDigits is the length of a vector field: 8 hex digits per lane.
const vectorDigits = insts.NumLanes * 8

// ParseLine decodes one trace line. It returns a nil event for lines that do
// not describe an event, including the halted sentinel. Store lanes are
// swapped from the model's byte order into word values.
func ParseLine(line string) (*emu.Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	var kind emu.EventKind
	switch fields[0] {
	case "store":
		kind = emu.EventMemoryStore
	case "vwriteback":
		kind = emu.EventVectorWriteback
	case "swriteback":
		kind = emu.EventScalarWriteback
	default:
		return nil, nil
	}

	if len(fields) < 5 || (kind != emu.EventScalarWriteback && len(fields) < 6) {
		return nil, nil
	}

	pc, err1 := strconv.ParseUint(fields[1], 16, 32)
	strand, err2 := strconv.ParseUint(fields[2], 16, 32)
	target, err3 := strconv.ParseUint(fields[3], 16, 32)
	value, err4 := strconv.ParseUint(fields[4], 16, 64)
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return nil, nil
	}
	if strand >= emu.NumStrands {
		return nil, nil
	}

	ev := &emu.Event{
		Kind:   kind,
		Strand: int(strand),
		PC:     uint32(pc),
	}

	switch kind {
	case emu.EventScalarWriteback:
		ev.Register = uint8(target)
		ev.Values[0] = uint32(value)
		return ev, nil
	case emu.EventVectorWriteback:
		ev.Register = uint8(target)
		ev.Mask = value & 0xffff
	case emu.EventMemoryStore:
		ev.Address = uint32(target)
		ev.Mask = value
	}

	ev.Values, err1 = parseVector(fields[5], kind == emu.EventMemoryStore)
	if err1 != nil {
		return nil, fmt.Errorf("%w: %q", err1, line)
	}

	return ev, nil
}

// parseVector reads 16 lanes, lane 15 first.
func parseVector(s string, swap bool) (emu.Vector, error) {
	var v emu.Vector

	if len(s) != vectorDigits {
		return v, ErrBadVector
	}

	for i := 0; i < insts.NumLanes; i++ {
		lane, err := strconv.ParseUint(s[i*8:i*8+8], 16, 32)
		if err != nil {
			return v, ErrBadVector
		}

		value := uint32(lane)
		if swap {
			value = bits.ReverseBytes32(value)
		}
		v[insts.NumLanes-1-i] = value
	}

	return v, nil
}

// FormatLine renders an event in trace form.
func FormatLine(ev *emu.Event) string {
	switch ev.Kind {
	case emu.EventMemoryStore:
		return fmt.Sprintf("store %08x %x %08x %016x %s",
			ev.PC, ev.Strand, ev.Address, ev.Mask, formatVector(ev.Values, true))
	case emu.EventVectorWriteback:
		return fmt.Sprintf("vwriteback %08x %x %x %04x %s",
			ev.PC, ev.Strand, ev.Register, ev.Mask&0xffff, formatVector(ev.Values, false))
	default:
		return fmt.Sprintf("swriteback %08x %x %x %08x",
			ev.PC, ev.Strand, ev.Register, ev.Values[0])
	}
}

func formatVector(v emu.Vector, swap bool) string {
	var sb strings.Builder
	for lane := insts.NumLanes - 1; lane >= 0; lane-- {
		value := v[lane]
		if swap {
			value = bits.ReverseBytes32(value)
		}
		fmt.Fprintf(&sb, "%08x", value)
	}
	return sb.String()
}

// Recorder is a hook that writes every side effect of a core as a trace
// line, producing input that Run accepts.
type Recorder struct {
	out io.Writer
}

// NewRecorder creates a recorder writing to out.
func NewRecorder(out io.Writer) *Recorder {
	return &Recorder{out: out}
}

// Func implements sim.Hook.
func (r *Recorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != emu.HookPosSideEffect {
		return
	}

	if ev, ok := ctx.Item.(*emu.Event); ok {
		_, _ = fmt.Fprintln(r.out, FormatLine(ev))
	}
}

// Halted writes the terminating line.
func (r *Recorder) Halted() {
	_, _ = fmt.Fprintln(r.out, HaltedLine)
}
