// Package benchmarks provides a harness that runs built-in strand workloads
// and reports throughput and self-validation results.
package benchmarks

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/strandsim/config"
	"github.com/sarchlab/strandsim/cosim"
	"github.com/sarchlab/strandsim/emu"
)

// BenchmarkResult holds the results of a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark exercises
	Description string `json:"description"`

	// InstructionsRetired counts instructions over all strands
	InstructionsRetired uint64 `json:"instructions_retired"`

	// SideEffects is the number of reported side effects
	SideEffects uint64 `json:"side_effects"`

	// Quanta is the number of quanta run before the core halted
	Quanta int `json:"quanta"`

	// Verified is set when the final state matched the expected result
	Verified bool `json:"verified"`

	// Mismatches found when the recorded trace was replayed through the
	// cosimulation validator
	Mismatches int `json:"mismatches"`

	// Error describes why the run failed, if it did
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// InstructionsPerSecond returns the simulation rate.
func (r BenchmarkResult) InstructionsPerSecond() float64 {
	if r.WallTime <= 0 {
		return 0
	}
	return float64(r.InstructionsRetired) / r.WallTime.Seconds()
}

// Passed reports whether the run halted cleanly, verified and replayed
// without mismatches.
func (r BenchmarkResult) Passed() bool {
	return r.Error == "" && r.Verified && r.Mismatches == 0
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark exercises
	Description string

	// Setup prepares core state (registers, data) after the program is
	// loaded at address 0.
	Setup func(core *emu.Core)

	// Program is the list of instruction words
	Program []uint32

	// Verify checks the final state of the core.
	Verify func(core *emu.Core) error
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	MemorySize  uint32
	QuantumSize int
	MaxQuanta   int

	// SelfCheck records each run's trace and replays it through a fresh
	// cosimulation validator.
	SelfCheck  bool
	RetryLimit int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives core diagnostics
	Logger *logrus.Logger

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return FromConfig(config.DefaultConfig())
}

// FromConfig derives a harness configuration from simulator settings.
func FromConfig(c *config.Config) HarnessConfig {
	logger := c.NewLogger()
	if logger.GetLevel() > logrus.WarnLevel {
		logger.SetLevel(logrus.WarnLevel)
	}

	return HarnessConfig{
		MemorySize:  c.MemorySize,
		QuantumSize: c.QuantumSize,
		MaxQuanta:   c.MaxQuanta,
		SelfCheck:   true,
		RetryLimit:  c.CosimRetryLimit,
		Output:      os.Stdout,
		Logger:      logger,
		Verbose:     false,
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "%s: %d instructions in %v\n",
				result.Name, result.InstructionsRetired, result.WallTime)
		}
		results = append(results, result)
	}

	return results
}

// sideEffectCounter counts events published by a core.
type sideEffectCounter struct {
	count uint64
}

func (c *sideEffectCounter) Func(ctx sim.HookCtx) {
	if ctx.Pos == emu.HookPosSideEffect {
		c.count++
	}
}

// newCore creates a core with the benchmark program loaded and set up.
func (h *Harness) newCore(bench Benchmark) (*emu.Core, error) {
	core := emu.NewCore(
		emu.WithMemorySize(h.config.MemorySize),
		emu.WithLogger(h.config.Logger),
		emu.WithStdout(h.config.Output),
	)

	if err := core.Memory().LoadProgram(0, BuildProgram(bench.Program...)); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", bench.Name, err)
	}

	if bench.Setup != nil {
		bench.Setup(core)
	}

	return core, nil
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	core, err := h.newCore(bench)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	counter := &sideEffectCounter{}
	core.AcceptHook(counter)

	trace := &bytes.Buffer{}
	recorder := cosim.NewRecorder(trace)
	if h.config.SelfCheck {
		core.AcceptHook(recorder)
	}

	start := time.Now()
	for !core.Halted() && result.Quanta < h.config.MaxQuanta {
		core.RunQuantum(h.config.QuantumSize)
		result.Quanta++
	}
	result.WallTime = time.Since(start)

	result.InstructionsRetired = core.InstructionCount()
	result.SideEffects = counter.count

	switch err := core.Err(); {
	case !core.Halted():
		result.Error = fmt.Sprintf("did not halt within %d quanta", h.config.MaxQuanta)
		return result
	case err != nil && !errors.Is(err, emu.ErrAllStrandsDisabled):
		result.Error = err.Error()
		return result
	}

	if bench.Verify != nil {
		if err := bench.Verify(core); err != nil {
			result.Error = err.Error()
			return result
		}
	}
	result.Verified = true

	if h.config.SelfCheck {
		recorder.Halted()
		if err := h.replay(bench, trace, &result); err != nil {
			result.Error = err.Error()
		}
	}

	return result
}

// replay validates a fresh core against the trace the benchmark produced.
func (h *Harness) replay(bench Benchmark, trace io.Reader, result *BenchmarkResult) error {
	core, err := h.newCore(bench)
	if err != nil {
		return err
	}

	v := cosim.NewValidator(core,
		cosim.WithLogger(h.config.Logger),
		cosim.WithRetryLimit(h.config.RetryLimit))

	r, err := cosim.Run(trace, v, cosim.RunOptions{})
	result.Mismatches = r.Mismatches

	return err
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== strandsim Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  Side Effects:         %d\n", r.SideEffects)
		_, _ = fmt.Fprintf(h.config.Output, "  Quanta:               %d\n", r.Quanta)
		_, _ = fmt.Fprintf(h.config.Output, "  Verified:             %t\n", r.Verified)
		if h.config.SelfCheck {
			_, _ = fmt.Fprintf(h.config.Output, "  Cosim Mismatches:     %d\n", r.Mismatches)
		}
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v (%.0f inst/s)\n",
			r.WallTime, r.InstructionsPerSecond())
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,instructions,side_effects,quanta,verified,mismatches,wall_time_ns")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%t,%d,%d\n",
			r.Name,
			r.InstructionsRetired,
			r.SideEffects,
			r.Quanta,
			r.Verified,
			r.Mismatches,
			r.WallTime.Nanoseconds(),
		)
	}
}

// PrintJSON outputs benchmark results as an indented JSON array.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// BuildProgram assembles instruction words into a little-endian image.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 0, len(instrs)*4)
	for _, inst := range instrs {
		program = binary.LittleEndian.AppendUint32(program, inst)
	}
	return program
}
