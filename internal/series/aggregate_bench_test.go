package series

import (
	"math/rand"
	"testing"
	"time"
)

// BenchmarkReconciler_Apply measures the per-tick reconcile cost on a full ring.
func BenchmarkReconciler_Apply(b *testing.B) {
	r := newTestReconciler(1)
	now := time.Now()
	inst := seeded(r, d("64000"), now)
	rng := rand.New(rand.NewSource(1))

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		inst, _ = r.Apply(inst, Step(rng, inst.Price, PollVolatility), now)
	}
}
