package emu

import (
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/strandsim/insts"
)

// Tracer is a hook that writes one line per side effect.
type Tracer struct {
	out io.Writer
}

// NewTracer creates a tracer writing to out.
func NewTracer(out io.Writer) *Tracer {
	return &Tracer{out: out}
}

// Func implements sim.Hook.
func (t *Tracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosSideEffect {
		return
	}

	ev, ok := ctx.Item.(*Event)
	if !ok {
		return
	}

	_, _ = fmt.Fprintf(t.out, "%08x [st %d] %s\n", ev.PC, ev.Strand, ev.Effect())
}

// FormatRegisters renders the registers of a strand.
func FormatRegisters(s *Strand) string {
	var sb strings.Builder
	regs := s.RegFile()

	fmt.Fprintf(&sb, "REGISTERS (strand %d)\n", s.ID())
	for reg := 0; reg < insts.NumRegisters; reg++ {
		if reg < 10 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "s%d %08x ", reg, regs.ReadScalar(uint8(reg)))
		if reg%8 == 7 {
			sb.WriteByte('\n')
		}
	}

	sb.WriteByte('\n')
	for reg := 0; reg < insts.NumRegisters; reg++ {
		if reg < 10 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "v%d ", reg)
		writeLanes(&sb, regs.ReadVector(uint8(reg)))
		sb.WriteByte('\n')
	}

	return sb.String()
}
