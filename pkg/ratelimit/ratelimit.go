// Package ratelimit provides keyed sliding-window admission control for
// workflow nodes.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mode selects what happens when the window is full.
type Mode string

const (
	ModeDelay Mode = "delay" // block until a slot frees up, capped at 30s
	ModeDrop  Mode = "drop"  // admit nothing, report dropped=true
	ModeError Mode = "error" // fail with the current/max rate
)

// ParseMode maps a configuration string to a Mode, defaulting to delay.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeDrop, ModeError:
		return Mode(s)
	default:
		return ModeDelay
	}
}

// maxWait bounds how long a delay-mode caller may block, so a saturated
// window cannot starve the worker pool.
const maxWait = 30 * time.Second

// ErrRateLimited is returned in error mode when the window is full.
var ErrRateLimited = fmt.Errorf("rate limit exceeded")

// Decision reports the outcome of one admission check.
type Decision struct {
	Dropped     bool          `json:"dropped"`
	Waited      time.Duration `json:"waited"`
	CurrentRate int           `json:"current_rate"`
	MaxRate     int           `json:"max_rate"`
}

// Limiter tracks sliding windows of admitted-request timestamps per key. It
// is explicitly scoped: construct one per owning service and inject it, never
// reach for a package global. Safe for concurrent use; admission order per
// key is FIFO by wall-clock arrival.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type window struct {
	mu         sync.Mutex
	timestamps []time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Limiter) windowFor(key string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		w = &window{}
		l.windows[key] = w
	}

	return w
}

// Acquire checks the sliding window for key and applies the overflow mode
// when it is full. On admission the current time is recorded as a new window
// entry. In delay mode the call blocks the caller for up to 30s waiting for
// the oldest entry to leave the window.
func (l *Limiter) Acquire(ctx context.Context, key string, maxRequests int, windowSize time.Duration, mode Mode) (Decision, error) {
	if maxRequests < 1 {
		maxRequests = 1
	}

	w := l.windowFor(key)

	w.mu.Lock()

	now := l.now()
	w.prune(now, windowSize)

	if len(w.timestamps) >= maxRequests {
		switch mode {
		case ModeDrop:
			decision := Decision{Dropped: true, CurrentRate: len(w.timestamps), MaxRate: maxRequests}
			w.mu.Unlock()

			return decision, nil
		case ModeError:
			current := len(w.timestamps)
			w.mu.Unlock()

			return Decision{CurrentRate: current, MaxRate: maxRequests},
				fmt.Errorf("%w: %d/%d requests in %s window", ErrRateLimited, current, maxRequests, windowSize)
		default:
			wait := w.timestamps[0].Add(windowSize).Sub(now)
			w.mu.Unlock()

			waited := time.Duration(0)

			if wait > 0 {
				if wait > maxWait {
					wait = maxWait
				}

				if err := l.sleep(ctx, wait); err != nil {
					return Decision{MaxRate: maxRequests}, err
				}

				waited = wait
			}

			w.mu.Lock()
			now = l.now()
			w.prune(now, windowSize)
			w.timestamps = append(w.timestamps, now)
			decision := Decision{Waited: waited, CurrentRate: len(w.timestamps), MaxRate: maxRequests}
			w.mu.Unlock()

			return decision, nil
		}
	}

	w.timestamps = append(w.timestamps, now)
	decision := Decision{CurrentRate: len(w.timestamps), MaxRate: maxRequests}
	w.mu.Unlock()

	return decision, nil
}

// prune drops entries older than now-windowSize. Caller holds w.mu.
func (w *window) prune(now time.Time, windowSize time.Duration) {
	cutoff := now.Add(-windowSize)

	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	w.timestamps = kept
}
