// Package tracker counts in-flight outbound calls and broadcasts every change
// of the counter to subscribed observers.
//
// Calls whose URL matches an exclusion rule never touch the counter. Callers
// report each logical request twice: Begin before dispatch and End once it
// settles, whatever the outcome. The tracker does not detect unbalanced
// pairs; the counter may go negative, which is logged but not corrected.
package tracker

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliamunaev/inflight/internal/logging"
	"github.com/iliamunaev/inflight/internal/pathindex"
)

// State is the counter snapshot delivered to observers.
type State struct {
	CallingCount int64 `json:"calling_count"`
	// Delta is +1 for a begin and -1 for an end. Zero for snapshots
	// returned by Tracker.State.
	Delta int64 `json:"delta,omitempty"`
	// Seq numbers transitions from 1, in the order the counter changed.
	// Zero marks an unsequenced state.
	Seq uint64 `json:"seq,omitempty"`
}

// Active reports whether at least one call is in flight.
func (s State) Active() bool { return s.CallingCount != 0 }

// NewerThan reports whether s should replace a state with sequence seq.
// Observers that keep the absolute count use it to drop stale deliveries.
// Unsequenced states always apply.
func (s State) NewerThan(seq uint64) bool { return s.Seq == 0 || s.Seq > seq }

// Observer receives every counter transition.
type Observer interface {
	Notify(State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(State)

// Notify calls f(s).
func (f ObserverFunc) Notify(s State) { f(s) }

// Tracker counts running calls using atomics and owns the exclusion index.
//
// Observers are notified synchronously, in subscription order, before
// Begin/End return. An observer may call back into the tracker; nested
// transitions are delivered depth-first. Calls made from different
// goroutines may reach observers out of counter order; State.Seq restores it.
type Tracker struct {
	countMu sync.Mutex
	running atomic.Int64
	seq     uint64

	mu       sync.RWMutex
	excluded *pathindex.Index

	subsMu sync.Mutex
	subs   []*Subscription

	log *logging.Logger
}

type options struct {
	log      *logging.Logger
	explicit bool
	paths    []string
}

// Option configures a Tracker.
type Option func(*options)

// WithLogger sets the logger used for call begin/end entries.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithExplicitTerminals builds the exclusion index with explicit rule flags.
// See pathindex.WithExplicitTerminals.
func WithExplicitTerminals() Option {
	return func(o *options) { o.explicit = true }
}

// WithExcludedPaths registers paths at construction time.
func WithExcludedPaths(paths ...string) Option {
	return func(o *options) { o.paths = append(o.paths, paths...) }
}

// New returns an idle Tracker.
func New(opts ...Option) *Tracker {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var ixOpts []pathindex.Option
	if o.explicit {
		ixOpts = append(ixOpts, pathindex.WithExplicitTerminals())
	}
	ix := pathindex.New(ixOpts...)
	for _, p := range o.paths {
		ix.Add(p)
	}

	log := logging.Nop()
	if o.log != nil {
		log = o.log.Named("tracker")
	}
	return &Tracker{excluded: ix, log: log}
}

// AddExcludedPath registers url as an exclusion rule.
func (t *Tracker) AddExcludedPath(url string) {
	t.mu.Lock()
	t.excluded.Add(url)
	n := t.excluded.Len()
	t.mu.Unlock()
	t.log.Debug(context.Background(), "exclusion registered", zap.String("url", url), zap.Int("rules", n))
}

// RemoveExcludedPath unregisters url.
func (t *Tracker) RemoveExcludedPath(url string) {
	t.mu.Lock()
	t.excluded.Remove(url)
	n := t.excluded.Len()
	t.mu.Unlock()
	t.log.Debug(context.Background(), "exclusion unregistered", zap.String("url", url), zap.Int("rules", n))
}

// IsExcluded reports whether calls to url bypass the counter.
func (t *Tracker) IsExcluded(url string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.excluded.Excluded(url)
}

// ExcludedPaths lists the registered rules in normalized form.
func (t *Tracker) ExcludedPaths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.excluded.Paths()
}

// Running returns the current running count.
func (t *Tracker) Running() int64 { return t.running.Load() }

// State returns the current snapshot. Subscribing does not replay state, so
// late observers read it here.
func (t *Tracker) State() State {
	t.countMu.Lock()
	defer t.countMu.Unlock()
	return State{CallingCount: t.running.Load(), Seq: t.seq}
}

// Begin records the start of a call and returns the token that ends it.
// The exclusion decision is taken once, here, and reused by Call.End.
func (t *Tracker) Begin(url string) *Call {
	c := &Call{ID: uuid.NewString(), URL: url, t: t}
	ctx := logging.WithCallID(context.Background(), c.ID)

	if t.IsExcluded(url) {
		c.Excluded = true
		t.log.Debug(ctx, "call excluded", zap.String("url", url))
		return c
	}

	n := t.apply(ctx, url, 1)
	t.log.Debug(ctx, "call begin", zap.String("url", url), zap.Int64("calling_count", n))
	return c
}

// BeginCall records the start of a call to url. The matching EndCall must
// use the same url.
func (t *Tracker) BeginCall(url string) {
	t.Begin(url)
}

// EndCall records the end of a call to url, re-deriving the exclusion
// decision from url.
func (t *Tracker) EndCall(url string) {
	if t.IsExcluded(url) {
		return
	}
	n := t.apply(context.Background(), url, -1)
	t.log.Debug(context.Background(), "call end", zap.String("url", url), zap.Int64("calling_count", n))
}

func (t *Tracker) apply(ctx context.Context, url string, delta int64) int64 {
	t.countMu.Lock()
	n := t.running.Add(delta)
	t.seq++
	s := State{CallingCount: n, Delta: delta, Seq: t.seq}
	t.countMu.Unlock()

	if n < 0 {
		t.log.Warn(ctx, "calling count below zero: unbalanced begin/end",
			zap.String("url", url),
			zap.Int64("calling_count", n),
		)
	}
	t.publish(s)
	return n
}

func (t *Tracker) publish(s State) {
	t.subsMu.Lock()
	subs := slices.Clone(t.subs)
	t.subsMu.Unlock()

	for _, sub := range subs {
		if !sub.closed.Load() {
			sub.observer.Notify(s)
		}
	}
}

// Subscribe registers o for every future transition.
func (t *Tracker) Subscribe(o Observer) *Subscription {
	sub := &Subscription{t: t, observer: o}
	t.subsMu.Lock()
	t.subs = append(t.subs, sub)
	t.subsMu.Unlock()
	return sub
}

// Subscribers returns the number of attached observers.
func (t *Tracker) Subscribers() int {
	t.subsMu.Lock()
	defer t.subsMu.Unlock()
	return len(t.subs)
}

// WaitIdle blocks until the counter reaches zero or ctx is done.
func (t *Tracker) WaitIdle(ctx context.Context) error {
	idle := make(chan struct{}, 1)
	sub := t.Subscribe(ObserverFunc(func(s State) {
		if s.CallingCount <= 0 {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	}))
	defer sub.Unsubscribe()

	if t.Running() <= 0 {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscription detaches an observer.
type Subscription struct {
	t        *Tracker
	observer Observer
	closed   atomic.Bool
}

// Unsubscribe stops delivery, including for a broadcast already in progress.
// Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.t.subsMu.Lock()
	s.t.subs = slices.DeleteFunc(s.t.subs, func(o *Subscription) bool { return o == s })
	s.t.subsMu.Unlock()
}

// Call is the token returned by Begin.
type Call struct {
	ID       string
	URL      string
	Excluded bool

	t     *Tracker
	ended atomic.Bool
}

// End records the end of the call using the decision taken at Begin.
// Only the first call has an effect.
func (c *Call) End() {
	if !c.ended.CompareAndSwap(false, true) || c.Excluded {
		return
	}
	ctx := logging.WithCallID(context.Background(), c.ID)
	n := c.t.apply(ctx, c.URL, -1)
	c.t.log.Debug(ctx, "call end", zap.String("url", c.URL), zap.Int64("calling_count", n))
}
