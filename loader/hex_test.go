package loader_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/strandsim/emu"
	"github.com/sarchlab/strandsim/loader"
)

var _ = Describe("Hex Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "hex-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	writeFile := func(name, content string) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	Describe("Load", func() {
		It("should keep bytes in memory order", func() {
			path := writeFile("prog.hex", "0500a00f\n\nc0000000\n")

			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Words()).To(Equal(2))
			Expect(prog.Data).To(Equal([]byte{0x05, 0x00, 0xa0, 0x0f, 0xc0, 0x00, 0x00, 0x00}))

			memory := emu.NewMemory(0x100)
			Expect(prog.LoadInto(memory)).To(Succeed())
			Expect(memory.Read32(0)).To(Equal(uint32(0x0fa00005)))
			Expect(memory.Read32(4)).To(Equal(uint32(0x000000c0)))
		})

		It("should fail for a missing file", func() {
			_, err := loader.Load(filepath.Join(tempDir, "missing.hex"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Parse", func() {
		DescribeTable("malformed lines",
			func(content string) {
				_, err := loader.Parse(strings.NewReader(content))
				Expect(err).To(MatchError(loader.ErrBadLine))
			},
			Entry("short", "0000000\n"),
			Entry("long", "000000000\n"),
			Entry("not hex", "0000000x\n"),
		)

		It("should accept surrounding whitespace", func() {
			prog, err := loader.Parse(strings.NewReader("  deadbeef \r\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Data).To(Equal([]byte{0xde, 0xad, 0xbe, 0xef}))
		})
	})

	It("should reject an image larger than memory", func() {
		prog, err := loader.Parse(strings.NewReader(strings.Repeat("00000000\n", 5)))
		Expect(err).NotTo(HaveOccurred())

		Expect(prog.LoadInto(emu.NewMemory(16))).To(MatchError(loader.ErrImageTooLarge))
		Expect(prog.LoadInto(emu.NewMemory(20))).To(Succeed())
	})
})
