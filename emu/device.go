package emu

import "io"

// Device window addresses.
const (
	DeviceWindowMask uint32 = 0xffff0000

	ConsoleAddress uint32 = 0xffff0000
	TestValueAddr1 uint32 = 0xffff0004
	TestValueAddr2 uint32 = 0xffff0008
)

// InDeviceWindow reports whether addr is routed to the device instead of
// memory.
func InDeviceWindow(addr uint32) bool {
	return addr&DeviceWindowMask == DeviceWindowMask
}

// Device handles word accesses to the device window.
type Device interface {
	ReadWord(addr uint32) uint32
	WriteWord(addr uint32, value uint32)
}

// ConsoleDevice writes characters stored to the console address and returns
// fixed values that a hardware testbench also returns.
type ConsoleDevice struct {
	out io.Writer
}

// NewConsoleDevice creates a console device writing to out.
func NewConsoleDevice(out io.Writer) *ConsoleDevice {
	return &ConsoleDevice{out: out}
}

// ReadWord implements Device.
func (d *ConsoleDevice) ReadWord(addr uint32) uint32 {
	switch addr {
	case TestValueAddr1:
		return 0x12345678
	case TestValueAddr2:
		return 0xabcdef9b
	default:
		return 0
	}
}

// WriteWord implements Device.
func (d *ConsoleDevice) WriteWord(addr uint32, value uint32) {
	if addr == ConsoleAddress {
		_, _ = d.out.Write([]byte{byte(value)})
	}
}
