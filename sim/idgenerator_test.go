package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func resetIDGenerator() {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	idGenerator = nil
}

var _ = Describe("IDGenerator", func() {
	BeforeEach(resetIDGenerator)
	AfterEach(resetIDGenerator)

	It("should count up with the sequential generator", func() {
		UseSequentialIDGenerator()

		g := GetIDGenerator()
		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
	})

	It("should generate distinct ids with xid", func() {
		UseXIDGenerator()

		g := GetIDGenerator()
		Expect(g.Generate()).NotTo(Equal(g.Generate()))
	})

	It("should refuse to switch generators after use", func() {
		GetIDGenerator().Generate()

		Expect(UseXIDGenerator).To(Panic())
	})
})
