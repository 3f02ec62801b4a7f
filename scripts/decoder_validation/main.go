// Validate decoder allocation behavior - DecodeInto should not allocate
package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/sarchlab/strandsim/insts"
)

func main() {
	decoder := insts.NewDecoder()

	// One word from every encoding format
	words := []uint32{
		insts.EncodeA(insts.OpAdd, insts.ShapeVectorVector, 3, 1, 2, 0),
		insts.EncodeB(insts.OpAdd, insts.ImmShapeScalar, 1, 1, 42, 0),
		insts.EncodeLoad(insts.AccessStrided, 4, 1, 8),
		insts.EncodeCache(insts.CacheDFlush, 2, 0),
		insts.EncodeBranch(insts.BranchNotZero, 1, -12),
	}

	var inst insts.Instruction

	// Warm up
	for i := 0; i < 1000; i++ {
		decoder.DecodeInto(words[i%len(words)], &inst)
	}

	runtime.GC()
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)

	start := time.Now()
	iterations := 100000

	// One round decodes the word each strand would retire
	for i := 0; i < iterations; i++ {
		for _, w := range words {
			decoder.DecodeInto(w, &inst)
		}
	}

	elapsed := time.Since(start)
	runtime.ReadMemStats(&m2)

	totalDecodes := iterations * len(words)
	allocations := m2.Mallocs - m1.Mallocs
	allocatedBytes := m2.TotalAlloc - m1.TotalAlloc

	fmt.Printf("Decoder Validation Results:\n")
	fmt.Printf("===========================\n")
	fmt.Printf("Total decode operations: %d\n", totalDecodes)
	fmt.Printf("Time elapsed: %v\n", elapsed)
	fmt.Printf("Decodes per second: %.0f\n", float64(totalDecodes)/elapsed.Seconds())
	fmt.Printf("Allocations: %d\n", allocations)
	fmt.Printf("Allocated bytes: %d\n", allocatedBytes)
	fmt.Printf("Allocations per decode: %.3f\n", float64(allocations)/float64(totalDecodes))
	fmt.Printf("Bytes per decode: %.1f\n", float64(allocatedBytes)/float64(totalDecodes))

	if float64(allocations)/float64(totalDecodes) < 0.1 {
		fmt.Printf("\nOK: low allocation rate (< 0.1 per decode)\n")
	} else {
		fmt.Printf("\nWARNING: high allocation rate detected\n")
	}
}
