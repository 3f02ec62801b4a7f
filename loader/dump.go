package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/strandsim/emu"
)

// ErrBadDumpSpec is returned for a malformed memory dump request.
var ErrBadDumpSpec = errors.New("bad format for memory dump")

// DumpSpec selects a memory range to write to a file after a run.
type DumpSpec struct {
	Path   string
	Base   uint32
	Length uint32
}

// ParseDumpSpec parses "file,base,length" with base and length in hex.
func ParseDumpSpec(s string) (DumpSpec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 || parts[0] == "" {
		return DumpSpec{}, fmt.Errorf("%w: %q", ErrBadDumpSpec, s)
	}

	base, err := strconv.ParseUint(strings.TrimPrefix(parts[1], "0x"), 16, 32)
	if err != nil {
		return DumpSpec{}, fmt.Errorf("%w: base %q", ErrBadDumpSpec, parts[1])
	}

	length, err := strconv.ParseUint(strings.TrimPrefix(parts[2], "0x"), 16, 32)
	if err != nil {
		return DumpSpec{}, fmt.Errorf("%w: length %q", ErrBadDumpSpec, parts[2])
	}

	return DumpSpec{Path: parts[0], Base: uint32(base), Length: uint32(length)}, nil
}

// DumpMemory writes length bytes of memory starting at base to w.
func DumpMemory(w io.Writer, memory *emu.Memory, base, length uint32) error {
	data, err := memory.ReadBytes(base, length)
	if err != nil {
		return fmt.Errorf("failed to dump memory: %w", err)
	}

	_, err = w.Write(data)

	return err
}

// WriteDump writes the range selected by spec to its file.
func WriteDump(spec DumpSpec, memory *emu.Memory) error {
	f, err := os.Create(spec.Path)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}

	if err := DumpMemory(f, memory, spec.Base, spec.Length); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
