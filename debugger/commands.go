package debugger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sarchlab/strandsim/emu"
)

// debugger keywords
const (
	cmdRegs        = "regs"
	cmdStep        = "step"
	cmdResume      = "resume"
	cmdBreak       = "break"
	cmdDelete      = "delete"
	cmdBreakpoints = "breakpoints"
	cmdStrand      = "strand"
	cmdMem         = "mem"
	cmdInterrupt   = "interrupt"
	cmdHelp        = "help"
	cmdQuit        = "quit"
)

// memLineLength is the number of bytes per mem output line.
const memLineLength = 16

type command struct {
	usage   string
	minArgs int
	maxArgs int
	run     func(d *Debugger, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		cmdRegs:        {cmdRegs, 0, 0, (*Debugger).regs},
		cmdStep:        {cmdStep, 0, 0, (*Debugger).step},
		cmdResume:      {cmdResume, 0, 0, (*Debugger).resume},
		cmdBreak:       {cmdBreak + " <addr>", 1, 1, (*Debugger).setBreakpoint},
		cmdDelete:      {cmdDelete + " <addr>", 1, 1, (*Debugger).deleteBreakpoint},
		cmdBreakpoints: {cmdBreakpoints, 0, 0, (*Debugger).listBreakpoints},
		cmdStrand:      {cmdStrand + " [id]", 0, 1, (*Debugger).strand},
		cmdMem:         {cmdMem + " <addr> <len>", 2, 2, (*Debugger).readMemory},
		cmdInterrupt:   {cmdInterrupt + " <id>", 1, 1, (*Debugger).interrupt},
		cmdHelp:        {cmdHelp, 0, 0, (*Debugger).help},
		cmdQuit:        {cmdQuit, 0, 0, (*Debugger).quit},
	}

	// long-form aliases
	commands["set-breakpoint"] = commands[cmdBreak]
	commands["delete-breakpoint"] = commands[cmdDelete]
	commands["read-memory"] = commands[cmdMem]
}

// parseNumber accepts decimal or 0x-prefixed hex.
func parseNumber(s string) (uint32, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}

	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrBadArgument, s)
	}

	return uint32(v), nil
}

func (d *Debugger) regs(_ []string) error {
	d.print("%s", emu.FormatRegisters(d.core.Strand(d.core.CurrentStrand())))
	return nil
}

func (d *Debugger) step(_ []string) error {
	if d.core.SingleStep() == emu.StopHalted {
		d.reportHalt()
		return nil
	}

	d.print("strand %d pc %08x\n", d.core.CurrentStrand(), d.core.PC())
	return nil
}

func (d *Debugger) resume(_ []string) error {
	d.print("running...\n")

	for i := 0; i < d.maxQuanta; i++ {
		switch d.core.RunQuantum(d.quantum) {
		case emu.StopBreakpoint:
			d.print("strand %d pc %08x\n", d.core.CurrentStrand(), d.core.PC())
			return nil
		case emu.StopHalted:
			d.reportHalt()
			return nil
		}
	}

	d.print("stopped\n")
	return nil
}

func (d *Debugger) reportHalt() {
	if err := d.core.Err(); err != nil {
		d.print("halted: %v\n", err)
		return
	}
	d.print("halted\n")
}

func (d *Debugger) setBreakpoint(args []string) error {
	pc, err := parseNumber(args[0])
	if err != nil {
		return err
	}

	return d.core.SetBreakpoint(pc)
}

func (d *Debugger) deleteBreakpoint(args []string) error {
	pc, err := parseNumber(args[0])
	if err != nil {
		return err
	}

	if err := d.core.ClearBreakpoint(pc); err != nil {
		return err
	}

	d.print("deleted\n")
	return nil
}

func (d *Debugger) listBreakpoints(_ []string) error {
	d.print("breakpoints:\n")
	for _, addr := range d.core.Breakpoints() {
		d.print(" %08x\n", addr)
	}
	return nil
}

func (d *Debugger) strand(args []string) error {
	if len(args) == 1 {
		id, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		if err := d.core.SetCurrentStrand(int(id)); err != nil {
			return err
		}
	}

	d.print("current strand is %d\n", d.core.CurrentStrand())
	return nil
}

func (d *Debugger) readMemory(args []string) error {
	start, err := parseNumber(args[0])
	if err != nil {
		return err
	}
	length, err := parseNumber(args[1])
	if err != nil {
		return err
	}

	if !d.core.Memory().InRange(start, length) {
		return fmt.Errorf("%w: 0x%08x (%d bytes)", emu.ErrAccessViolation, start, length)
	}

	var sb strings.Builder
	for line := uint32(0); line < length; line += memLineLength {
		addr := start + line
		data, err := d.core.Memory().ReadBytes(addr, min(memLineLength, length-line))
		if err != nil {
			return err
		}

		fmt.Fprintf(&sb, "%08x    ", addr)
		for _, b := range data {
			fmt.Fprintf(&sb, "%02x ", b)
		}
		sb.WriteString(strings.Repeat("   ", memLineLength-len(data)))
		sb.WriteString("    ")
		for _, b := range data {
			if b >= 33 && b <= 126 {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}

	d.print("%s", sb.String())
	return nil
}

func (d *Debugger) interrupt(args []string) error {
	id, err := parseNumber(args[0])
	if err != nil {
		return err
	}

	return d.core.Interrupt(int(id))
}

func (d *Debugger) help(_ []string) error {
	usages := make([]string, 0, len(commands))
	for name, cmd := range commands {
		if strings.HasPrefix(cmd.usage, name) {
			usages = append(usages, cmd.usage)
		}
	}
	sort.Strings(usages)

	d.print("available commands:\n")
	for _, usage := range usages {
		d.print("  %s\n", usage)
	}
	return nil
}

func (d *Debugger) quit(_ []string) error {
	return ErrQuit
}
