package randsource

import (
	"context"
	"testing"
)

func TestSameSeedProducesSameSequence(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 20; i++ {
		if a.IntN(1000) != b.IntN(1000) {
			t.Fatalf("sequences diverged at step %d", i)
		}
		if a.Float64() != b.Float64() {
			t.Fatalf("float sequences diverged at step %d", i)
		}
	}
}

func TestIntNNonPositiveBound(t *testing.T) {
	if got := New(1).IntN(0); got != 0 {
		t.Fatalf("expected 0 for empty range, got %d", got)
	}
}

func TestSplitIsDeterministicPerParentSeed(t *testing.T) {
	a, b := New(7), New(7)
	for i := 0; i < 5; i++ {
		ca, cb := Split(a), Split(b)
		if ca.IntN(1_000_000) != cb.IntN(1_000_000) {
			t.Fatalf("children diverged at split %d", i)
		}
	}
}

func TestFromContextFallsBack(t *testing.T) {
	fallback := New(1)
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Fatalf("expected fallback source without an attached one")
	}
	attached := New(2)
	if got := FromContext(NewContext(context.Background(), attached), fallback); got != attached {
		t.Fatalf("expected the attached source")
	}
}
