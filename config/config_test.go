package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/strandsim/config"
)

var _ = Describe("Config", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			c := config.DefaultConfig()
			Expect(c.Validate()).To(Succeed())
			Expect(c.MemorySize).To(Equal(uint32(0x1000000)))
			Expect(c.CosimRetryLimit).To(Equal(500))
			Expect(c.StopOnMismatch).To(BeTrue())
		})
	})

	Describe("Validation", func() {
		DescribeTable("rejects unusable values",
			func(mutate func(c *config.Config)) {
				c := config.DefaultConfig()
				mutate(c)
				Expect(c.Validate()).To(MatchError(config.ErrInvalidConfig))
			},
			Entry("zero memory", func(c *config.Config) { c.MemorySize = 0 }),
			Entry("unaligned memory", func(c *config.Config) { c.MemorySize = 1000 }),
			Entry("zero quantum", func(c *config.Config) { c.QuantumSize = 0 }),
			Entry("negative max quanta", func(c *config.Config) { c.MaxQuanta = -1 }),
			Entry("zero retry limit", func(c *config.Config) { c.CosimRetryLimit = 0 }),
			Entry("unknown log level", func(c *config.Config) { c.LogLevel = "loud" }),
		)
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := config.DefaultConfig()
			clone := original.Clone()

			clone.QuantumSize = 1

			Expect(original.QuantumSize).To(Equal(1000))
			Expect(clone.QuantumSize).To(Equal(1))
		})
	})

	Describe("NewLogger", func() {
		It("should use the configured level", func() {
			c := config.DefaultConfig()
			c.LogLevel = "debug"
			Expect(c.NewLogger().GetLevel()).To(Equal(logrus.DebugLevel))
		})

		It("should fall back to info", func() {
			c := config.DefaultConfig()
			c.LogLevel = "bogus"
			Expect(c.NewLogger().GetLevel()).To(Equal(logrus.InfoLevel))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "config-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := config.DefaultConfig()
			original.QuantumSize = 10
			original.StopOnMismatch = false

			path := filepath.Join(tempDir, "strandsim.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for missing fields", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"trace": true}`), 0644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Trace).To(BeTrue())
			Expect(loaded.MaxQuanta).To(Equal(80000))
		})

		It("should return error for non-existent file", func() {
			_, err := config.LoadConfig("/nonexistent/path/strandsim.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			Expect(os.WriteFile(path, []byte("not valid json"), 0644)).To(Succeed())

			_, err := config.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
