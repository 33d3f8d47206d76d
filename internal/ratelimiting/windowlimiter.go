package ratelimiting

import (
	"context"
	"slices"
	"sync"
	"time"
)

// windowLimiter allows at most limit operations within any window of the
// given duration, measured from each operation's completion time.
type windowLimiter struct {
	limit     int
	window    time.Duration
	nowFunc   func() time.Time
	afterFunc func(time.Duration) <-chan time.Time

	availableSlots chan struct{}
	completedAt    []time.Time
	mutex          sync.Mutex
}

// NewWindowLimiter creates a limiter that keeps the rate of outgoing
// operations polite regardless of how much traffic comes in.
func NewWindowLimiter(
	limit int,
	window time.Duration,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) *windowLimiter {
	availableSlots := make(chan struct{}, limit)
	for i := 0; i < limit; i++ {
		availableSlots <- struct{}{}
	}

	// Seed the history so the first limit operations never wait
	completedAt := make([]time.Time, limit)
	veryOldTime := nowFunc().Add(-window)
	for i := 0; i < limit; i++ {
		completedAt[i] = veryOldTime
	}

	return &windowLimiter{
		limit:     limit,
		window:    window,
		nowFunc:   nowFunc,
		afterFunc: afterFunc,

		availableSlots: availableSlots,
		completedAt:    completedAt,
		mutex:          sync.Mutex{},
	}
}

// Limit runs operation once the rate limit allows it. It returns false
// without running the operation if ctx is canceled first, or if the
// expected wait plus maxOperationTime would overrun ctx's deadline.
func (l *windowLimiter) Limit(ctx context.Context, maxOperationTime time.Duration, operation func()) bool {
	select {
	case <-l.availableSlots:
		defer func() {
			l.availableSlots <- struct{}{}
		}()
	case <-ctx.Done():
		return false
	}

	oldest, ok := l.takeOldestCompletion(ctx, maxOperationTime)
	if !ok {
		return false
	}
	// The taken completion must be put back. It is replaced by the
	// operation's own completion time if the operation runs.
	completion := oldest
	defer func() {
		l.insertCompletion(completion)
	}()

	if wait := l.waitFor(oldest); wait > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-l.afterFunc(wait):
		}
	}

	operation()
	completion = l.nowFunc()
	return true
}

func (l *windowLimiter) waitFor(completion time.Time) time.Duration {
	sinceCompletion := l.nowFunc().Sub(completion)
	return l.window - sinceCompletion
}

func (l *windowLimiter) insertCompletion(completion time.Time) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	i, _ := slices.BinarySearchFunc(l.completedAt, completion, time.Time.Compare)
	l.completedAt = slices.Insert(l.completedAt, i, completion)
}

func (l *windowLimiter) takeOldestCompletion(ctx context.Context, maxOperationTime time.Duration) (time.Time, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	oldest := l.completedAt[0]
	if deadline, ok := ctx.Deadline(); ok {
		needed := l.waitFor(oldest) + maxOperationTime
		if needed > deadline.Sub(l.nowFunc()) {
			return time.Time{}, false
		}
	}

	l.completedAt = l.completedAt[1:]
	return oldest, true
}
