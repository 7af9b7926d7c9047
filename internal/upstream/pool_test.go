package upstream_test

import (
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/balancerd/internal/upstream"
)

func TestUpstream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Upstream Suite")
}

var _ = Describe("Pool", func() {
	var pool *upstream.Pool

	addresses := []string{"10.0.0.1:80", "10.0.0.2:80", "10.0.0.3:80"}

	BeforeEach(func() {
		pool = upstream.NewPool(addresses)
	})

	Describe("Select", func() {
		It("should return an alive address with a valid index", func() {
			idx, addr, err := pool.Select()
			Expect(err).NotTo(HaveOccurred())
			Expect(addresses).To(ContainElement(addr))

			alive, _ := pool.Snapshot()
			Expect(alive[idx]).To(Equal(addr))
		})

		It("should eventually select every alive address", func() {
			seen := map[string]bool{}
			for i := 0; i < 200; i++ {
				_, addr, err := pool.Select()
				Expect(err).NotTo(HaveOccurred())
				seen[addr] = true
			}
			Expect(seen).To(HaveLen(len(addresses)))
		})

		It("should fail when everything is dead", func() {
			for pool.AliveCount() > 0 {
				idx, addr, err := pool.Select()
				Expect(err).NotTo(HaveOccurred())
				pool.MarkDead(idx, addr)
			}

			_, _, err := pool.Select()
			Expect(err).To(MatchError(upstream.ErrNoUpstream))
		})

		It("should never return a dead address", func() {
			idx, addr, err := pool.Select()
			Expect(err).NotTo(HaveOccurred())
			Expect(pool.MarkDead(idx, addr)).To(BeTrue())

			for i := 0; i < 100; i++ {
				_, selected, err := pool.Select()
				Expect(err).NotTo(HaveOccurred())
				Expect(selected).NotTo(Equal(addr))
			}
		})
	})

	Describe("MarkDead", func() {
		It("should move the address to the dead partition", func() {
			idx, addr, err := pool.Select()
			Expect(err).NotTo(HaveOccurred())
			Expect(pool.MarkDead(idx, addr)).To(BeTrue())

			alive, dead := pool.Snapshot()
			Expect(alive).NotTo(ContainElement(addr))
			Expect(dead).To(ConsistOf(addr))
		})

		It("should preserve the union of partitions", func() {
			idx, addr, err := pool.Select()
			Expect(err).NotTo(HaveOccurred())
			pool.MarkDead(idx, addr)

			Expect(pool.Addresses()).To(ConsistOf("10.0.0.1:80", "10.0.0.2:80", "10.0.0.3:80"))
		})

		It("should ignore a stale index", func() {
			Expect(pool.MarkDead(0, "10.0.0.9:80")).To(BeFalse())
			Expect(pool.AliveCount()).To(Equal(3))
		})

		It("should ignore an out-of-range index", func() {
			Expect(pool.MarkDead(99, "10.0.0.1:80")).To(BeFalse())
			Expect(pool.AliveCount()).To(Equal(3))
		})

		It("should stay consistent under concurrent failover", func() {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						idx, addr, err := pool.Select()
						if err != nil {
							return
						}
						pool.MarkDead(idx, addr)
					}
				}()
			}
			wg.Wait()

			alive, dead := pool.Snapshot()
			Expect(alive).To(BeEmpty())
			Expect(dead).To(ConsistOf("10.0.0.1:80", "10.0.0.2:80", "10.0.0.3:80"))
		})
	})

	Describe("Republish", func() {
		It("should replace both partitions", func() {
			pool.Republish([]string{"10.0.0.2:80"}, []string{"10.0.0.1:80", "10.0.0.3:80"})

			alive, dead := pool.Snapshot()
			Expect(alive).To(ConsistOf("10.0.0.2:80"))
			Expect(dead).To(ConsistOf("10.0.0.1:80", "10.0.0.3:80"))
		})

		It("should let a dead address rejoin alive", func() {
			idx, addr, err := pool.Select()
			Expect(err).NotTo(HaveOccurred())
			pool.MarkDead(idx, addr)

			pool.Republish(addresses, nil)
			Expect(pool.AliveCount()).To(Equal(3))
		})
	})
})
