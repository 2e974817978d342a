package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []bool
}

func (o *recordingObserver) CircuitBreakerStateChanged(_ string, open bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, open)
}

func newTestBreaker(t *testing.T, observer StateObserver) (*CircuitBreaker, *time.Time) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:            "test",
		MaxRequestsFail: 2,
		Interval:        time.Minute,
		Timeout:         10 * time.Second,
		MaxRequests:     1,
	}, zaptest.NewLogger(t), observer)
	cb.now = func() time.Time { return clock }
	cb.windowStart = clock
	return cb, &clock
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	observer := &recordingObserver{}
	cb, clock := newTestBreaker(t, observer)
	ctx := context.Background()
	boom := errors.New("boom")

	fail := func(context.Context) error { return boom }
	ok := func(context.Context) error { return nil }

	assert.ErrorIs(t, cb.Execute(ctx, fail, nil), boom)
	assert.Equal(t, StateClose, cb.GetState())
	assert.ErrorIs(t, cb.Execute(ctx, fail, nil), boom)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil }, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	// após o timeout uma única requisição de teste passa
	*clock = clock.Add(11 * time.Second)
	assert.NoError(t, cb.Execute(ctx, ok, nil))
	assert.Equal(t, StateClose, cb.GetState())
	assert.Equal(t, []bool{true, false}, observer.events)
}

func TestCircuitBreaker_HalfOpenLimitsRequests(t *testing.T) {
	cb, clock := newTestBreaker(t, nil)
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func(context.Context) error { return boom }, nil)
	}
	*clock = clock.Add(11 * time.Second)

	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(ctx, func(context.Context) error { <-release; return boom }, nil)
	}()

	assert.Eventually(t, func() bool { return cb.GetState() == StateHalfOpen }, time.Second, time.Millisecond)
	assert.ErrorIs(t, cb.Execute(ctx, func(context.Context) error { return nil }, nil), ErrCircuitOpen)

	close(release)
	assert.ErrorIs(t, <-done, boom)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_IgnoresUncountableErrors(t *testing.T) {
	cb, _ := newTestBreaker(t, nil)
	clientErr := errors.New("bad input")
	countable := func(err error) bool { return !errors.Is(err, clientErr) }

	for i := 0; i < 5; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error { return clientErr }, countable)
	}
	assert.Equal(t, StateClose, cb.GetState())
}

func TestCircuitBreaker_FailureWindowResets(t *testing.T) {
	cb, clock := newTestBreaker(t, nil)
	boom := errors.New("boom")

	_ = cb.Execute(context.Background(), func(context.Context) error { return boom }, nil)
	*clock = clock.Add(2 * time.Minute)
	_ = cb.Execute(context.Background(), func(context.Context) error { return boom }, nil)

	assert.Equal(t, StateClose, cb.GetState())
}
