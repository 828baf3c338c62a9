package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arm7core/cache"
	"github.com/sarchlab/arm7core/insts"
)

var _ = Describe("DecodeCache", func() {
	var (
		c       *cache.DecodeCache
		decoded int
	)

	BeforeEach(func() {
		decoded = 0
		decoder := insts.NewDecoder()
		backing := cache.DecoderFunc(func(word uint32) *insts.Instruction {
			decoded++
			return decoder.Decode(word)
		})

		var err error
		// Small cache for testing: 4 sets, 2 ways
		c, err = cache.New(cache.Config{Sets: 4, Ways: 2}, backing)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("should reject an empty geometry", func() {
			_, err := cache.New(cache.Config{Sets: 0, Ways: 2}, insts.NewDecoder())
			Expect(err).To(HaveOccurred())

			_, err = cache.New(cache.Config{Sets: 4, Ways: 0}, insts.NewDecoder())
			Expect(err).To(HaveOccurred())
		})

		It("should accept the default geometry", func() {
			Expect(cache.DefaultConfig().Validate()).To(Succeed())
		})
	})

	Describe("Fetch", func() {
		It("should miss on a cold cache and decode", func() {
			inst := c.Fetch(0x08000000, 0xE3A0102A)

			Expect(inst.Op).To(Equal(insts.OpMOV))
			Expect(decoded).To(Equal(1))

			stats := c.Stats()
			Expect(stats.Lookups).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("should hit on a cached word", func() {
			first := c.Fetch(0x08000000, 0xE3A0102A)
			second := c.Fetch(0x08000000, 0xE3A0102A)

			Expect(second).To(BeIdenticalTo(first))
			Expect(decoded).To(Equal(1))
			Expect(c.Stats().Hits).To(Equal(uint64(1)))
		})

		It("should redecode when the word at an address changed", func() {
			c.Fetch(0x08000000, 0xE3A0102A)
			inst := c.Fetch(0x08000000, 0xE0910002)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(decoded).To(Equal(2))
		})
	})

	Describe("Replacement", func() {
		It("should evict the least recently used way", func() {
			// 0x00, 0x10 and 0x20 all map to set 0.
			c.Fetch(0x00, 0xE1A00000)
			c.Fetch(0x10, 0xE1A00000)
			c.Fetch(0x00, 0xE1A00000) // touch 0x00
			c.Fetch(0x20, 0xE1A00000) // evicts 0x10

			Expect(c.Stats().Evictions).To(Equal(uint64(1)))

			_, ok := c.Lookup(0x00, 0xE1A00000)
			Expect(ok).To(BeTrue())
			_, ok = c.Lookup(0x10, 0xE1A00000)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Invalidate", func() {
		It("should drop the block holding an address", func() {
			c.Fetch(0x08000004, 0xEAFFFFFE)
			c.Invalidate(0x08000006)

			_, ok := c.Lookup(0x08000004, 0xEAFFFFFE)
			Expect(ok).To(BeFalse())
			Expect(c.Stats().Invalidations).To(Equal(uint64(1)))
		})

		It("should ignore addresses that are not cached", func() {
			c.Invalidate(0x1000)
			Expect(c.Stats().Invalidations).To(Equal(uint64(0)))
		})
	})

	Describe("Reset", func() {
		It("should empty the cache and clear the counters", func() {
			c.Fetch(0x00, 0xE1A00000)
			c.Reset()

			Expect(c.Stats()).To(Equal(cache.Statistics{}))
			_, ok := c.Lookup(0x00, 0xE1A00000)
			Expect(ok).To(BeFalse())
		})
	})
})
