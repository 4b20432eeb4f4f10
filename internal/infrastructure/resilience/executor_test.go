package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

var errBackendBusy = errors.New("backend busy")

func retryOnBusy(err error) ErrorClassification {
	return ErrorClassification{
		Retryable:     errors.Is(err, errBackendBusy) || errors.Is(err, context.DeadlineExceeded),
		RecordFailure: true,
	}
}

type observerFake struct {
	mu      sync.Mutex
	retries int
	states  []string
}

func (f *observerFake) ObserveRetry(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries++
}

func (f *observerFake) ObserveBreakerState(_ string, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}

func fastRetryConfig(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func TestCallRetriesBusyBackend(t *testing.T) {
	observer := &observerFake{}
	exec := NewExecutor(fastRetryConfig(2)).WithObserver(observer)

	attempts := 0
	labels, err := Call(context.Background(), exec, "vision.classify", func(context.Context) ([]string, error) {
		attempts++
		if attempts == 1 {
			return nil, errBackendBusy
		}
		return []string{"vase"}, nil
	}, retryOnBusy)
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if len(labels) != 1 || labels[0] != "vase" {
		t.Fatalf("unexpected result: %v", labels)
	}
	if attempts != 2 || observer.retries != 1 {
		t.Fatalf("expected 2 attempts and 1 observed retry, got %d/%d", attempts, observer.retries)
	}
}

func TestExecuteStopsAfterMaxAttempts(t *testing.T) {
	exec := NewExecutor(fastRetryConfig(2))

	attempts := 0
	err := exec.Execute(context.Background(), "vision.classify", func(context.Context) error {
		attempts++
		return errBackendBusy
	}, retryOnBusy)
	if !errors.Is(err, errBackendBusy) {
		t.Fatalf("expected busy error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastRetryConfig(3))

	attempts := 0
	errBadImage := errors.New("bad image")
	err := exec.Execute(context.Background(), "vision.ocr", func(context.Context) error {
		attempts++
		return errBadImage
	}, retryOnBusy)
	if !errors.Is(err, errBadImage) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteBoundsEachAttempt(t *testing.T) {
	cfg := fastRetryConfig(2)
	cfg.AttemptTimeout = 20 * time.Millisecond
	exec := NewExecutor(cfg)

	attempts := 0
	start := time.Now()
	err := exec.Execute(context.Background(), "vision.classify", func(ctx context.Context) error {
		attempts++
		<-ctx.Done()
		return ctx.Err()
	}, retryOnBusy)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected a fresh deadline per attempt, got %d attempts", attempts)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("attempt timeout not applied, took %s", elapsed)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	observer := &observerFake{}
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	}).WithObserver(observer)

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
			return errBackendBusy
		}, retryOnBusy)
		if !errors.Is(err, errBackendBusy) {
			t.Fatalf("expected busy error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, retryOnBusy)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if len(observer.states) != 1 || observer.states[0] != "open" {
		t.Fatalf("expected open transition, got %v", observer.states)
	}
}

func TestCallWithoutExecutor(t *testing.T) {
	got, err := Call(context.Background(), nil, "noop", func(context.Context) (int, error) {
		return 7, nil
	}, nil)
	if err != nil || got != 7 {
		t.Fatalf("Call() = %d, %v", got, err)
	}
}
