package protection

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// SlidingWindow caps the number of requests a fingerprint may make within a
// trailing interval. State is kept per fingerprint in a sync.Map so
// independent callers never contend on one lock; each entry carries its own
// mutex so increment-and-compare is atomic per key.
type SlidingWindow struct {
	interval time.Duration
	max      int
	entries  sync.Map // fingerprint -> *windowEntry
	now      func() time.Time
}

type windowEntry struct {
	mu      sync.Mutex
	start   time.Time
	count   int
	evicted bool
}

// NewSlidingWindow builds the limiter rule with a window of the given length
// and per-window maximum.
func NewSlidingWindow(interval time.Duration, max int) *SlidingWindow {
	return &SlidingWindow{
		interval: interval,
		max:      max,
		now:      time.Now,
	}
}

// Name implements Rule.
func (w *SlidingWindow) Name() string { return "rate_limit" }

// Evaluate implements Rule.
func (w *SlidingWindow) Evaluate(_ context.Context, req *RequestInfo) (Verdict, error) {
	return w.Check(req.Fingerprint(), w.now()), nil
}

// Check applies the window to one request from fingerprint at the given
// instant. At most max requests are allowed per window; once the ceiling is
// hit the count stops growing so a sustained flood cannot overflow it.
func (w *SlidingWindow) Check(fingerprint string, now time.Time) Verdict {
	for {
		v, _ := w.entries.LoadOrStore(fingerprint, &windowEntry{start: now})
		e := v.(*windowEntry)

		e.mu.Lock()
		if e.evicted {
			// Lost a race with the sweeper; the entry is detached. Retry
			// against whatever is in the map now.
			e.mu.Unlock()
			continue
		}

		if now.Sub(e.start) >= w.interval {
			e.start = now
			e.count = 1
			e.mu.Unlock()
			return Allow()
		}

		if e.count < w.max {
			e.count++
			e.mu.Unlock()
			return Allow()
		}

		retry := e.start.Add(w.interval).Sub(now)
		e.mu.Unlock()

		verdict := Deny(w.Name(), ReasonRateLimitExceeded,
			"fingerprint exceeded "+strconv.Itoa(w.max)+" requests per "+w.interval.String())
		verdict.RetryAfter = retry
		return verdict
	}
}

// Sweep drops entries whose window expired before now, bounding memory for
// fingerprints that went quiet. Safe to run concurrently with Check.
func (w *SlidingWindow) Sweep(now time.Time) int {
	removed := 0
	w.entries.Range(func(key, value interface{}) bool {
		e := value.(*windowEntry)
		e.mu.Lock()
		if now.Sub(e.start) >= w.interval {
			e.evicted = true
			w.entries.Delete(key)
			removed++
		}
		e.mu.Unlock()
		return true
	})
	return removed
}

// Len reports how many fingerprints currently hold window state.
func (w *SlidingWindow) Len() int {
	n := 0
	w.entries.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
