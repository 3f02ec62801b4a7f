// Package loader provides program image loading and memory dumps for the
// strand processor.
package loader

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sarchlab/strandsim/emu"
)

// Loader errors.
var (
	ErrBadLine       = errors.New("malformed hex line")
	ErrImageTooLarge = errors.New("program image does not fit in memory")
)

// Program is a program image. It is loaded at address 0.
type Program struct {
	// Data holds the image bytes in memory order.
	Data []byte
}

// Words returns the number of instruction words in the image.
func (p *Program) Words() int {
	return len(p.Data) / 4
}

// Load reads a hex program image from path.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hex file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse reads a hex program image. Each line holds one word as 8 hex digits
// giving its 4 bytes in memory order. Blank lines are skipped.
func Parse(r io.Reader) (*Program, error) {
	prog := &Program{}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if len(line) != 8 {
			return nil, fmt.Errorf("%w: line %d: %q", ErrBadLine, lineNum, line)
		}

		word, err := hex.DecodeString(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %q", ErrBadLine, lineNum, line)
		}

		prog.Data = append(prog.Data, word...)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hex file: %w", err)
	}

	return prog, nil
}

// LoadInto copies the image into memory at address 0.
func (p *Program) LoadInto(memory *emu.Memory) error {
	if uint64(len(p.Data)) > uint64(memory.Size()) {
		return fmt.Errorf("%w: %d bytes, memory is %d bytes",
			ErrImageTooLarge, len(p.Data), memory.Size())
	}

	return memory.LoadProgram(0, p.Data)
}
