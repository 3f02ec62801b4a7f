// Package main provides a profiling wrapper for strandsim to identify
// performance bottlenecks.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/strandsim/emu"
	"github.com/sarchlab/strandsim/loader"
)

var (
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Int("max-instr", 1000000, "max instructions to execute (0 = unlimited)")
	quantum     = flag.Int("quantum", 1000, "rounds per quantum")
	memorySize  = flag.Uint("memory", uint(emu.DefaultMemorySize), "memory size in bytes")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.hex>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Words: %d\n", prog.Words())

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	core := emu.NewCore(
		emu.WithMemorySize(uint32(*memorySize)),
		emu.WithLogger(logger),
	)
	if err := prog.LoadInto(core.Memory()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()

	// Set timeout
	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	reason := runProfile(core)
	elapsed := time.Since(start)
	instrCount := core.InstructionCount()

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Stop reason: %v\n", reason)
	if err := core.Err(); err != nil {
		fmt.Printf("Halt cause: %v\n", err)
	}
	fmt.Printf("Instructions executed: %d\n", instrCount)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
}

// runProfile runs quanta until the core halts, a breakpoint is hit or the
// instruction limit is reached.
func runProfile(core *emu.Core) emu.StopReason {
	for {
		reason := core.RunQuantum(*quantum)
		if reason != emu.StopCompleted {
			return reason
		}
		if *instruction > 0 && core.InstructionCount() >= uint64(*instruction) {
			return reason
		}
	}
}
