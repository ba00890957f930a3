package circuitbreaker_test

import (
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alabobai/media-bridge/internal/circuitbreaker"
)

var _ = Describe("Registry", func() {
	var registry *circuitbreaker.Registry

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(3, 1, 30*time.Second)
	})

	Describe("GetBreaker", func() {
		It("should create a new breaker for an unknown key", func() {
			cb := registry.GetBreaker("chat.ollama")
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should return the same breaker for the same key", func() {
			cb1 := registry.GetBreaker("chat.ollama")
			cb2 := registry.GetBreaker("chat.ollama")
			Expect(cb1).To(BeIdenticalTo(cb2))
		})

		It("should return different breakers for different keys", func() {
			cb1 := registry.GetBreaker("chat.ollama")
			cb2 := registry.GetBreaker("image.local")
			Expect(cb1).NotTo(BeIdenticalTo(cb2))
		})

		It("should use the registry thresholds for new breakers", func() {
			registry = circuitbreaker.NewRegistry(2, 1, 100*time.Millisecond)
			cb := registry.GetBreaker("video.local")

			cb.RecordFailure("boom")
			cb.RecordFailure("boom")
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		})
	})

	Describe("Record operations by key", func() {
		It("should trip the breaker after threshold failures", func() {
			err := errors.New("connection refused")
			registry.RecordFailure("chat.ollama", err)
			registry.RecordFailure("chat.ollama", err)
			registry.RecordFailure("chat.ollama", err)

			Expect(registry.CanAttempt("chat.ollama")).To(BeFalse())
			snap := registry.Snapshot("chat.ollama")
			Expect(snap.State).To(Equal("OPEN"))
			Expect(snap.ConsecutiveFailures).To(Equal(0))
		})

		It("should keep the last error for diagnostics", func() {
			registry.RecordFailure("chat.ollama", errors.New("first"))
			registry.RecordFailure("chat.ollama", errors.New("second"))
			Expect(registry.LastError("chat.ollama")).To(Equal("second"))
		})

		It("should tolerate a nil failure error", func() {
			registry.RecordFailure("chat.ollama", nil)
			Expect(registry.LastError("chat.ollama")).To(Equal(""))
		})

		It("should not affect other keys", func() {
			err := errors.New("connection refused")
			registry.RecordFailure("chat.ollama", err)
			registry.RecordFailure("chat.ollama", err)
			registry.RecordFailure("chat.ollama", err)

			Expect(registry.CanAttempt("chat.pollinations")).To(BeTrue())
		})
	})

	Describe("Concurrent access", func() {
		It("should handle concurrent GetBreaker calls safely", func() {
			const goroutines = 100

			var wg sync.WaitGroup
			wg.Add(goroutines)

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					for j := 0; j < 10; j++ {
						cb := registry.GetBreaker("chat.ollama")
						Expect(cb).NotTo(BeNil())
					}
				}()
			}

			wg.Wait()

			Expect(registry.All()).To(HaveLen(1))
		})

		It("should handle concurrent operations on the same key", func() {
			const goroutines = 50

			var wg sync.WaitGroup
			wg.Add(goroutines * 2)

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					registry.RecordFailure("chat.ollama", errors.New("boom"))
				}()
			}
			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					registry.RecordSuccess("chat.ollama")
				}()
			}

			wg.Wait()

			state := registry.GetBreaker("chat.ollama").State()
			Expect(state).To(BeElementOf(
				circuitbreaker.StateClosed,
				circuitbreaker.StateOpen,
				circuitbreaker.StateHalfOpen,
			))
		})
	})

	Describe("Snapshots", func() {
		It("should create entries for unseen keys", func() {
			snaps := registry.Snapshots("chat.ollama", "chat.pollinations")
			Expect(snaps).To(HaveLen(2))
			Expect(snaps["chat.ollama"].State).To(Equal("CLOSED"))
		})
	})

	Describe("Reset", func() {
		It("should clear all breakers", func() {
			registry.GetBreaker("chat.ollama")
			registry.GetBreaker("image.local")
			Expect(registry.All()).To(HaveLen(2))

			registry.Reset()

			Expect(registry.All()).To(HaveLen(0))
		})
	})
})
