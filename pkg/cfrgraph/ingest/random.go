package ingest

import (
	"crypto/rand"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Random is the randomness the pipeline draws on for synthesized dates,
// placeholder corrections and word-count estimates. *math/rand.Rand
// satisfies it; tests substitute fixed sequences.
type Random interface {
	Intn(n int) int
	NormFloat64() float64
}

// NewRandom returns a seeded source. Seed 0 seeds from the clock.
func NewRandom(seed int64) Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return mrand.New(mrand.NewSource(seed))
}

// IDFunc mints identifiers for historical changes, which have no natural key.
type IDFunc func() string

// NewULIDs returns an IDFunc producing monotonic ULIDs.
func NewULIDs() IDFunc {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.Reader, 0)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Now(), entropy).String()
	}
}
