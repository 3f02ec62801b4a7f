package cosim

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// RunOptions controls a trace run.
type RunOptions struct {
	// StopOnMismatch ends the run at the first mismatch.
	StopOnMismatch bool

	// Echo receives every trace line before it is checked, if set.
	Echo io.Writer
}

// Result summarizes a trace run.
type Result struct {
	Events     int
	Mismatches int
	Skipped    int
	Halted     bool
}

// Passed reports whether the run reached the end of the trace without any
// mismatch.
func (r Result) Passed() bool {
	return r.Halted && r.Mismatches == 0
}

// Run feeds each event of a hardware trace to the validator until the halted
// line. Lines that are not events are skipped. A trace that ends without the
// halted line returns ErrNotHalted.
func Run(r io.Reader, v *Validator, opts RunOptions) (Result, error) {
	var result Result

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if opts.Echo != nil {
			_, _ = fmt.Fprintf(opts.Echo, "\n%s\n", line)
		}

		if strings.TrimSpace(line) == HaltedLine {
			result.Halted = true
			return result, nil
		}

		ev, err := ParseLine(line)
		if err != nil {
			return result, err
		}
		if ev == nil {
			result.Skipped++
			continue
		}

		result.Events++
		ok, err := v.Check(ev)
		if err != nil {
			return result, err
		}
		if !ok {
			result.Mismatches++
			if opts.StopOnMismatch {
				return result, fmt.Errorf("%w at %08x", ErrMismatch, ev.PC)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read trace: %w", err)
	}

	return result, ErrNotHalted
}
