// Command benchmark runs the built-in strandsim workloads.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv           Output results in CSV format (default: human-readable)
//	-json          Output results in JSON format
//	-quick         Run only the quick subset
//	-no-selfcheck  Skip replaying each run through the cosimulation validator
//	-config        Simulator configuration JSON file
//
// Example:
//
//	# Run all workloads with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/strandsim/benchmarks"
	"github.com/sarchlab/strandsim/config"
)

func main() {
	// Parse flags
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	quick := flag.Bool("quick", false, "Run only the quick subset")
	noSelfCheck := flag.Bool("no-selfcheck", false, "Skip cosimulation replay of each run")
	configPath := flag.String("config", "", "Path to simulator configuration JSON file")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// Configure harness
	harnessConfig := benchmarks.FromConfig(cfg)
	harnessConfig.SelfCheck = !*noSelfCheck
	harnessConfig.Output = os.Stdout

	harness := benchmarks.NewHarness(harnessConfig)
	if *quick {
		harness.AddBenchmarks(benchmarks.GetQuickWorkloads())
	} else {
		harness.AddBenchmarks(benchmarks.GetWorkloads())
	}

	humanReadable := !*csvOutput && !*jsonOutput
	if humanReadable {
		fmt.Println("strandsim Benchmark Harness")
		fmt.Println("===========================")
		fmt.Printf("Quantum: %d x %d\n", harnessConfig.QuantumSize, harnessConfig.MaxQuanta)
		fmt.Printf("Self-check: %v\n", harnessConfig.SelfCheck)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	failed := 0
	for _, r := range results {
		if !r.Passed() {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d workloads failed\n", failed, len(results))
		os.Exit(1)
	}
}
