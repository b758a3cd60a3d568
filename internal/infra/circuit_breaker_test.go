package infra

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

type fakeTime struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestBreaker(ft *fakeTime, isFailure func(error) bool) (*CircuitBreaker, *[]string) {
	var transitions []string
	cfg := CircuitBreakerConfig{
		Name:             "shop",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      10 * time.Second,
		IsFailure:        isFailure,
		OnStateChange: func(_ string, from, to CBState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
		now: ft.Now,
	}
	return NewCircuitBreaker(cfg), &transitions
}

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	ft := &fakeTime{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb, _ := newTestBreaker(ft, nil)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errUpstream }), errUpstream)
	}
	assert.Equal(t, CBOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	ft := &fakeTime{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb, transitions := newTestBreaker(ft, nil)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errUpstream })
	}
	ft.Advance(10 * time.Second)
	assert.Equal(t, CBHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, *transitions)
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	ft := &fakeTime{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb, _ := newTestBreaker(ft, nil)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errUpstream })
	}
	ft.Advance(11 * time.Second)
	_ = cb.Execute(func() error { return errUpstream })
	assert.Equal(t, CBOpen, cb.State())
}

func TestCircuitBreaker_IgnoresNonFailures(t *testing.T) {
	ft := &fakeTime{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	errRejected := errors.New("rejected")
	cb, _ := newTestBreaker(ft, func(err error) bool { return !errors.Is(err, errRejected) })

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errRejected }), errRejected)
	}
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	ft := &fakeTime{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb, _ := newTestBreaker(ft, nil)

	_ = cb.Execute(func() error { return errUpstream })
	_ = cb.Execute(func() error { return errUpstream })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errUpstream })
	_ = cb.Execute(func() error { return errUpstream })
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_IgnoredErrorsLeaveStateAlone(t *testing.T) {
	ft := &fakeTime{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	errGone := errors.New("caller gone")
	cb, _ := newTestBreaker(ft, nil)
	cb.cfg.IsIgnored = func(err error) bool { return errors.Is(err, errGone) }

	// Ignored errors neither trip the breaker nor reset the failure count.
	_ = cb.Execute(func() error { return errUpstream })
	_ = cb.Execute(func() error { return errUpstream })
	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errGone }), errGone)
	}
	assert.Equal(t, CBClosed, cb.State())
	_ = cb.Execute(func() error { return errUpstream })
	assert.Equal(t, CBOpen, cb.State())

	// Nor do they count as a recovery probe.
	ft.Advance(10 * time.Second)
	_ = cb.Execute(func() error { return errGone })
	_ = cb.Execute(func() error { return errGone })
	assert.Equal(t, CBHalfOpen, cb.State())
}
