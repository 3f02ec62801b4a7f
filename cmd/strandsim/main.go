// Package main provides the entry point for strandsim, an instruction set
// simulator for the four-strand vector processor.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/strandsim/config"
	"github.com/sarchlab/strandsim/cosim"
	"github.com/sarchlab/strandsim/debugger"
	"github.com/sarchlab/strandsim/emu"
	"github.com/sarchlab/strandsim/loader"
)

// Execution modes.
const (
	modeRun   = "run"
	modeCosim = "cosim"
	modeDebug = "debug"
)

var (
	mode       = flag.String("m", modeRun, "Execution mode: run, cosim or debug")
	configPath = flag.String("config", "", "Path to simulator configuration JSON file")
	verbose    = flag.Bool("v", false, "Trace side effects (run) or echo trace lines (cosim)")
	dumpSpec   = flag.String("d", "", "Dump memory after the run: file,base,length (hex)")
	recordPath = flag.String("record", "", "Write a cosimulation trace of the run to this file")
	tracePath  = flag.String("trace", "", "Hardware trace to validate in cosim mode (default: stdin)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: strandsim [options] <program.hex>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Trace = true
	}
	logger := cfg.NewLogger()

	var dump *loader.DumpSpec
	if *dumpSpec != "" {
		spec, err := loader.ParseDumpSpec(*dumpSpec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		dump = &spec
	}

	programPath := flag.Arg(0)
	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading image %s: %v\n", programPath, err)
		os.Exit(1)
	}

	core := emu.NewCore(
		emu.WithMemorySize(cfg.MemorySize),
		emu.WithLogger(logger),
	)
	if err := prog.LoadInto(core.Memory()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading image %s: %v\n", programPath, err)
		os.Exit(1)
	}

	logger.WithFields(logrus.Fields{
		"image": programPath,
		"words": prog.Words(),
		"mode":  *mode,
	}).Debug("loaded program")

	exitCode := 0
	switch *mode {
	case modeRun:
		exitCode = runNormal(core, cfg)
	case modeCosim:
		exitCode = runCosim(core, cfg, logger)
	case modeDebug:
		exitCode = runDebug(core, cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "Unknown execution mode %s\n", *mode)
		os.Exit(1)
	}

	if dump != nil {
		if err := loader.WriteDump(*dump, core.Memory()); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory dump: %v\n", err)
			exitCode = 1
		}
	}

	fmt.Printf("%d total instructions executed\n", core.InstructionCount())
	os.Exit(exitCode)
}

func loadConfig() (*config.Config, error) {
	if *configPath == "" {
		return config.DefaultConfig(), nil
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// runNormal runs up to MaxQuanta quanta without interaction.
func runNormal(core *emu.Core, cfg *config.Config) int {
	if cfg.Trace {
		core.AcceptHook(emu.NewTracer(os.Stdout))
	}

	var recorder *cosim.Recorder
	if *recordPath != "" {
		f, err := os.Create(*recordPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating trace file: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()

		recorder = cosim.NewRecorder(f)
		core.AcceptHook(recorder)
	}

	for i := 0; i < cfg.MaxQuanta; i++ {
		if core.RunQuantum(cfg.QuantumSize) == emu.StopHalted {
			break
		}
	}

	if recorder != nil && core.Halted() {
		recorder.Halted()
	}

	return haltStatus(core)
}

// runCosim validates the simulator against a hardware trace.
func runCosim(core *emu.Core, cfg *config.Config, logger *logrus.Logger) int {
	var trace io.Reader = os.Stdin
	if *tracePath != "" {
		f, err := os.Open(*tracePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening trace: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()
		trace = f
	}

	v := cosim.NewValidator(core,
		cosim.WithLogger(logger),
		cosim.WithRetryLimit(cfg.CosimRetryLimit))

	opts := cosim.RunOptions{StopOnMismatch: cfg.StopOnMismatch}
	if *verbose {
		opts.Echo = os.Stdout
	}

	result, err := cosim.Run(trace, v, opts)
	for _, m := range v.Mismatches() {
		fmt.Printf("mismatch at %08x: %s\n%s", m.PC(), m, m.Registers)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cosimulation failed: %v\n", err)
		return 1
	}

	fmt.Printf("%d events checked, %d mismatches\n", result.Events, result.Mismatches)
	if !result.Passed() {
		return 1
	}

	return 0
}

// runDebug reads debugger commands from stdin.
func runDebug(core *emu.Core, cfg *config.Config, logger *logrus.Logger) int {
	dbg := debugger.New(core,
		debugger.WithLogger(logger),
		debugger.WithQuantum(cfg.QuantumSize, cfg.MaxQuanta),
		debugger.WithPrompt(isTerminal(os.Stdin)),
	)

	if err := dbg.Run(os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading commands: %v\n", err)
		return 1
	}

	return 0
}

// haltStatus maps the core's halt cause to an exit code. Disabling every
// strand is a normal way for a program to finish.
func haltStatus(core *emu.Core) int {
	err := core.Err()
	if err == nil || errors.Is(err, emu.ErrAllStrandsDisabled) {
		return 0
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
