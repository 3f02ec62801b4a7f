//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package main

import "os"

// isTerminal always prompts where terminal detection is unavailable.
func isTerminal(_ *os.File) bool {
	return true
}
