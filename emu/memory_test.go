package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/strandsim/emu"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory(0x1000)
	})

	It("should read back zero from untouched memory", func() {
		Expect(memory.Read32(0x100)).To(Equal(uint32(0)))
	})

	It("should store words little-endian", func() {
		Expect(memory.Write32(0x10, 0x11223344)).To(Succeed())

		Expect(memory.Read8(0x10)).To(Equal(uint8(0x44)))
		Expect(memory.Read8(0x13)).To(Equal(uint8(0x11)))
		Expect(memory.Read16(0x12)).To(Equal(uint16(0x1122)))
	})

	It("should write bytes and shorts in place", func() {
		Expect(memory.Write32(0x20, 0xffffffff)).To(Succeed())
		Expect(memory.Write8(0x21, 0x00)).To(Succeed())
		Expect(memory.Write16(0x22, 0x1234)).To(Succeed())

		Expect(memory.Read32(0x20)).To(Equal(uint32(0x123400ff)))
	})

	It("should reject accesses past the end", func() {
		_, err := memory.Read32(0xffe)
		Expect(err).To(MatchError(emu.ErrAccessViolation))

		Expect(memory.Write8(0x1000, 1)).To(MatchError(emu.ErrAccessViolation))
		Expect(memory.Write32(0xffffffff, 1)).To(MatchError(emu.ErrAccessViolation))
	})

	It("should report range membership", func() {
		Expect(memory.Size()).To(Equal(uint32(0x1000)))
		Expect(memory.InRange(0xffc, 4)).To(BeTrue())
		Expect(memory.InRange(0xffd, 4)).To(BeFalse())
	})

	It("should load a program image", func() {
		Expect(memory.LoadProgram(0x40, []byte{0xde, 0xad, 0xbe, 0xef})).To(Succeed())
		Expect(memory.Read32(0x40)).To(Equal(uint32(0xefbeadde)))
	})
})
