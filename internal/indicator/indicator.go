// Package indicator turns tracker transitions into a busy/idle signal with a
// local enable switch, the way a blocking loader overlay consumes it.
package indicator

import (
	"sync"

	"github.com/iliamunaev/inflight/internal/tracker"
)

// Indicator is visible while calls are in flight and it is enabled.
type Indicator struct {
	mu       sync.Mutex
	enabled  bool
	count    int64
	seq      uint64
	visible  bool
	onChange func(visible bool)

	sub *tracker.Subscription
}

// Option configures an Indicator.
type Option func(*Indicator)

// OnChange registers fn to run whenever visibility flips.
// fn runs synchronously on the goroutine that caused the flip.
func OnChange(fn func(visible bool)) Option {
	return func(ind *Indicator) { ind.onChange = fn }
}

// New returns an enabled, hidden Indicator.
func New(opts ...Option) *Indicator {
	ind := &Indicator{enabled: true}
	for _, opt := range opts {
		opt(ind)
	}
	return ind
}

// Attach subscribes to tr. Attaching twice is a no-op.
// Only transitions after Attach are seen.
func (ind *Indicator) Attach(tr *tracker.Tracker) {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.sub != nil {
		return
	}
	ind.sub = tr.Subscribe(ind)
}

// Detach unsubscribes from the tracker.
func (ind *Indicator) Detach() {
	ind.mu.Lock()
	sub := ind.sub
	ind.sub = nil
	ind.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Notify implements tracker.Observer. A state older than the last one
// applied is ignored, so a delivery delayed behind another goroutine's
// transition cannot overwrite a newer count.
func (ind *Indicator) Notify(s tracker.State) {
	ind.update(func() {
		if !s.NewerThan(ind.seq) {
			return
		}
		if s.Seq != 0 {
			ind.seq = s.Seq
		}
		ind.count = s.CallingCount
	})
}

// Enable lets the indicator show while calls are in flight.
func (ind *Indicator) Enable() {
	ind.update(func() { ind.enabled = true })
}

// Disable keeps the indicator hidden regardless of the count.
func (ind *Indicator) Disable() {
	ind.update(func() { ind.enabled = false })
}

// Visible reports whether the busy indicator should be shown.
func (ind *Indicator) Visible() bool {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	return ind.visible
}

// Enabled reports the local override.
func (ind *Indicator) Enabled() bool {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	return ind.enabled
}

// Count returns the last count received.
func (ind *Indicator) Count() int64 {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	return ind.count
}

func (ind *Indicator) update(mutate func()) {
	ind.mu.Lock()
	mutate()
	visible := ind.count != 0 && ind.enabled
	changed := visible != ind.visible
	ind.visible = visible
	fn := ind.onChange
	ind.mu.Unlock()

	if changed && fn != nil {
		fn(visible)
	}
}
