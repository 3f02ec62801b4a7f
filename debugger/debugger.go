// Package debugger implements a line-oriented command interface over an
// emu.Core. Every command maps to one core operation.
package debugger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/strandsim/emu"
)

// Debugger errors.
var (
	ErrQuit           = errors.New("quit")
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArgument    = errors.New("bad argument")
)

// Prompt is written before each command read by Run.
const Prompt = "(strandsim) "

// Debugger dispatches commands to a core.
type Debugger struct {
	core   *emu.Core
	out    io.Writer
	logger *logrus.Logger

	quantum   int
	maxQuanta int
	prompt    bool
}

// Option configures a Debugger.
type Option func(*Debugger)

// WithOutput sets the writer command responses go to.
func WithOutput(w io.Writer) Option {
	return func(d *Debugger) {
		d.out = w
	}
}

// WithLogger sets the logger for rejected commands.
func WithLogger(logger *logrus.Logger) Option {
	return func(d *Debugger) {
		d.logger = logger
	}
}

// WithQuantum sets the quantum size used by resume and the number of quanta
// a single resume may run before it returns.
func WithQuantum(size, maxQuanta int) Option {
	return func(d *Debugger) {
		d.quantum = size
		d.maxQuanta = maxQuanta
	}
}

// WithPrompt enables writing Prompt before every command in Run.
func WithPrompt(enabled bool) Option {
	return func(d *Debugger) {
		d.prompt = enabled
	}
}

// New creates a debugger for core.
func New(core *emu.Core, opts ...Option) *Debugger {
	d := &Debugger{
		core:      core,
		out:       os.Stdout,
		logger:    logrus.StandardLogger(),
		quantum:   1000,
		maxQuanta: 80000,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run reads commands from r until quit or end of input. Rejected commands are
// reported and ignored.
func (d *Debugger) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	for {
		if d.prompt {
			d.print("%s", Prompt)
		}
		if !scanner.Scan() {
			break
		}

		err := d.Execute(scanner.Text())
		switch {
		case err == nil:
		case errors.Is(err, ErrQuit):
			return nil
		default:
			d.logger.WithError(err).Debug("command rejected")
			d.print("%v\n", err)
		}
	}

	return scanner.Err()
}

// Execute runs one command line. It returns ErrQuit for the quit command.
func (d *Debugger) Execute(line string) error {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil
	}

	cmd, ok := commands[strings.ToLower(tokens[0])]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, tokens[0])
	}

	args := tokens[1:]
	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		return fmt.Errorf("%w: usage: %s", ErrBadArgument, cmd.usage)
	}

	return cmd.run(d, args)
}

func (d *Debugger) print(format string, args ...any) {
	_, _ = fmt.Fprintf(d.out, format, args...)
}
