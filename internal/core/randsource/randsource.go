// Package randsource provides the seeded pseudo-random source shared by placeholder
// scoring and fallback policies. A fixed seed makes appraisals reproducible.
package randsource

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

type Source interface {
	IntN(n int) int
	Float64() float64
}

// Locked is a Source safe for concurrent use.
type Locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a source seeded with seed, or with the current time when seed is 0.
func New(seed uint64) *Locked {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Locked{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *Locked) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Split seeds a new independent source from parent. Splitting in a fixed order yields the
// same children for the same parent seed.
func Split(parent Source) *Locked {
	return New(uint64(parent.IntN(math.MaxInt)) + 1)
}

type contextKey struct{}

// NewContext attaches src to ctx for consumers further down one analysis.
func NewContext(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, contextKey{}, src)
}

// FromContext returns the source attached to ctx, or fallback when there is none.
func FromContext(ctx context.Context, fallback Source) Source {
	if src, ok := ctx.Value(contextKey{}).(Source); ok && src != nil {
		return src
	}
	return fallback
}
