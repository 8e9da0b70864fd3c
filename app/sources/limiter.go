package sources

import (
	"context"
	"sync"
	"time"
)

// CallLimiter serializes calls to the same external source and enforces a
// minimum delay between consecutive calls. The delay is a deliberate
// suspension point required by the sources' own rate limits, so waiting here
// is normal operation, not contention.
type CallLimiter struct {
	mu      sync.Mutex
	sources map[string]*sourceSlot
}

type sourceSlot struct {
	mu       sync.Mutex
	lastCall time.Time
}

func NewCallLimiter() *CallLimiter {
	return &CallLimiter{
		sources: make(map[string]*sourceSlot),
	}
}

func (l *CallLimiter) slot(source string) *sourceSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sources[source]
	if !ok {
		s = &sourceSlot{}
		l.sources[source] = s
	}
	return s
}

// Acquire blocks until the source's inter-call delay has elapsed, then runs
// fn while holding the source's slot. Calls to different sources proceed
// concurrently; calls to the same source are serialized.
func (l *CallLimiter) Acquire(ctx context.Context, source string, delay time.Duration, fn func(ctx context.Context) error) error {
	s := l.slot(source)

	s.mu.Lock()
	defer s.mu.Unlock()

	if wait := delay - time.Since(s.lastCall); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	s.lastCall = time.Now()
	return fn(ctx)
}
