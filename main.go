// Package main provides the entry point for strandsim.
// strandsim is an instruction set simulator for a four-strand vector
// processor, with cosimulation against hardware traces.
//
// For the full CLI, use: go run ./cmd/strandsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("strandsim - Four-Strand Vector Processor Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: strandsim [options] <program.hex>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -m         Execution mode: run, cosim or debug")
	fmt.Println("  -config    Path to simulator configuration JSON file")
	fmt.Println("  -v         Trace side effects (run) or echo trace lines (cosim)")
	fmt.Println("  -d         Dump memory after the run: file,base,length (hex)")
	fmt.Println("  -record    Write a cosimulation trace of the run")
	fmt.Println("  -trace     Hardware trace to validate in cosim mode")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/strandsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/strandsim' instead.")
	}
}
