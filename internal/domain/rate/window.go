// Package rate maintains a rolling time window of blink timestamps.
//
// The windowed count is the "current blinks-per-minute" figure and is
// distinct from the lifetime average rate; both are exposed by the session
// store.
package rate

import "time"

// DefaultSpan is the trailing window length.
const DefaultSpan = 60 * time.Second

// Window is a bounded time-ordered sequence of blink timestamps. It is not
// safe for concurrent use; each session's window is guarded by its store
// shard lock.
type Window struct {
	span   time.Duration
	stamps []time.Time
}

// Option applies a configuration option to the Window.
type Option func(*Window)

// WithSpan sets the trailing window length.
func WithSpan(span time.Duration) Option {
	return func(w *Window) {
		if span > 0 {
			w.span = span
		}
	}
}

// NewWindow creates a rolling window with the default 60-second span.
func NewWindow(opts ...Option) *Window {
	w := &Window{span: DefaultSpan}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Span returns the configured window length.
func (w *Window) Span() time.Duration {
	return w.span
}

// Add records a blink timestamp and drops entries that have aged out.
// Prune and Within rely on stamps staying nondecreasing; frames carry
// client timestamps, so an entry older than the tail is inserted in order
// rather than appended.
func (w *Window) Add(ts time.Time) {
	i := len(w.stamps)
	for i > 0 && w.stamps[i-1].After(ts) {
		i--
	}
	w.stamps = append(w.stamps, time.Time{})
	copy(w.stamps[i+1:], w.stamps[i:])
	w.stamps[i] = ts
	w.Prune(ts)
}

// Prune drops entries older than the span, measured from now.
func (w *Window) Prune(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// Count prunes aged entries and returns how many blinks remain in the
// trailing window.
func (w *Window) Count(now time.Time) int {
	w.Prune(now)
	return len(w.stamps)
}

// Within returns how many blinks fall inside the trailing window without
// mutating the sequence. For read paths that hold only a read lock; the
// periodic pruner reclaims the aged prefix.
func (w *Window) Within(now time.Time) int {
	cutoff := now.Add(-w.span)
	n := 0
	for i := len(w.stamps) - 1; i >= 0 && w.stamps[i].After(cutoff); i-- {
		n++
	}
	return n
}
