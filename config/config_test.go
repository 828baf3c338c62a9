package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arm7core/config"
	"github.com/sarchlab/arm7core/emu"
)

var _ = Describe("CoreConfig", func() {
	Describe("Default Config", func() {
		It("should match the default reset state", func() {
			c := config.DefaultCoreConfig()

			Expect(c.ResetState()).To(Equal(emu.DefaultResetState()))
			Expect(c.ResetCPSR).To(Equal(uint32(0xDF)))
		})

		It("should enable a 256x2 decode cache", func() {
			c := config.DefaultCoreConfig()

			Expect(c.DecodeCacheEnabled()).To(BeTrue())
			Expect(c.DecodeCacheSets).To(Equal(256))
			Expect(c.DecodeCacheWays).To(Equal(2))
		})

		It("should be valid", func() {
			Expect(config.DefaultCoreConfig().Validate()).To(Succeed())
		})
	})

	Describe("Validate", func() {
		var c *config.CoreConfig

		BeforeEach(func() {
			c = config.DefaultCoreConfig()
		})

		It("should reject an invalid reset mode", func() {
			c.ResetCPSR = 0x00
			Expect(c.Validate()).To(MatchError(emu.ErrInvalidMode))
		})

		It("should reject a THUMB reset state", func() {
			c.ResetCPSR |= emu.PSRT
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should reject an unaligned reset PC", func() {
			c.ResetPC = 0x08000002
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should reject a cache without ways", func() {
			c.DecodeCacheWays = 0
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should accept a disabled cache", func() {
			c.DecodeCacheSets = 0
			c.DecodeCacheWays = 0
			Expect(c.Validate()).To(Succeed())
			Expect(c.DecodeCacheEnabled()).To(BeFalse())
		})
	})

	Describe("Clone", func() {
		It("should not share state with the original", func() {
			original := config.DefaultCoreConfig()
			clone := original.Clone()
			clone.ResetPC = 0x100

			Expect(original.ResetPC).To(Equal(uint32(0x08000000)))
			Expect(clone.MaxInstructions).To(Equal(original.MaxInstructions))
		})
	})

	Describe("Save and Load", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "config-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should round-trip through a file", func() {
			original := config.DefaultCoreConfig()
			original.MaxInstructions = 1000
			original.MemoryLimit = 0x10000
			path := filepath.Join(tempDir, "core.json")

			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for missing keys", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"reset_pc": 4096}`), 0644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.ResetPC).To(Equal(uint32(0x1000)))
			Expect(loaded.ResetSPIRQ).To(Equal(uint32(0x03007FA0)))
		})

		It("should fail on a missing file", func() {
			_, err := config.LoadConfig("/nonexistent/path/core.json")
			Expect(err).To(HaveOccurred())
		})

		It("should fail on malformed JSON", func() {
			path := filepath.Join(tempDir, "bad.json")
			Expect(os.WriteFile(path, []byte("not valid json"), 0644)).To(Succeed())

			_, err := config.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("EmulatorOptions", func() {
		It("should build an emulator from the configuration", func() {
			c := config.DefaultCoreConfig()
			c.ResetPC = 0x1000
			c.MemoryLimit = 0x2000
			c.MaxInstructions = 1

			opts := append(c.EmulatorOptions(), emu.WithMemory(c.NewMemory()))
			e, err := emu.NewEmulator(opts...)
			Expect(err).NotTo(HaveOccurred())

			Expect(e.RegFile().PC()).To(Equal(uint32(0x1000)))
			Expect(e.Memory().Limit()).To(Equal(uint64(0x2000)))
			Expect(e.DecodeCache().Config()).To(Equal(c.CacheConfig()))

			Expect(e.Step().Err).NotTo(HaveOccurred())
			Expect(e.Step().Err).To(MatchError(emu.ErrMaxInstructions))
		})

		It("should disable the decode cache", func() {
			c := config.DefaultCoreConfig()
			c.DecodeCacheSets = 0

			e, err := emu.NewEmulator(c.EmulatorOptions()...)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.DecodeCache()).To(BeNil())
		})
	})
})
