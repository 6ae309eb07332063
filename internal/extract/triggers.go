package extract

import (
	"context"
	"math"
	"time"

	"github.com/jonesrussell/liharvest/internal/logger"
)

// TriggerKind classifies the browsing events that may start a pass.
type TriggerKind int

const (
	// TriggerPageLoad fires once when a page finishes loading.
	TriggerPageLoad TriggerKind = iota
	// TriggerNavigation fires on in-app URL changes.
	TriggerNavigation
	// TriggerScroll fires on viewport movement and is debounced.
	TriggerScroll
)

// Trigger is one browsing event observed by the session driver.
type Trigger struct {
	Kind        TriggerKind
	URL         string
	ScrollDelta float64
}

const (
	// DefaultScrollDebounce is how long scrolling must stay quiet before a
	// scroll-driven pass fires.
	DefaultScrollDebounce = 500 * time.Millisecond
	// DefaultScrollThreshold is the cumulative vertical movement, in pixels,
	// below which settled scrolling is ignored.
	DefaultScrollThreshold = 300.0
)

// Watcher converts raw browsing events into extraction passes. Page loads
// and navigations fire immediately; scrolls accumulate until the stream
// goes quiet and only fire when total movement clears the threshold.
type Watcher struct {
	events    chan Trigger
	fire      func(Trigger)
	debounce  time.Duration
	threshold float64
	logger    logger.Interface
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// WithScrollDebounce overrides the scroll quiet period.
func WithScrollDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithScrollThreshold overrides the minimum cumulative scroll distance.
func WithScrollThreshold(px float64) WatcherOption {
	return func(w *Watcher) { w.threshold = px }
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(log logger.Interface) WatcherOption {
	return func(w *Watcher) { w.logger = log }
}

// NewWatcher builds a Watcher invoking fire for each pass-worthy event.
func NewWatcher(fire func(Trigger), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		events:    make(chan Trigger, 64),
		fire:      fire,
		debounce:  DefaultScrollDebounce,
		threshold: DefaultScrollThreshold,
		logger:    logger.NewNoOp(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Observe queues a browsing event. Events observed while the queue is full
// are dropped; a lost scroll tick is recovered by the next one.
func (w *Watcher) Observe(t Trigger) {
	select {
	case w.events <- t:
	default:
		w.logger.Debug("trigger queue full, dropping event", "kind", t.Kind)
	}
}

// Run consumes events until ctx is done. It must be called from a single
// goroutine.
func (w *Watcher) Run(ctx context.Context) {
	var (
		scrollTimer *time.Timer
		scrollC     <-chan time.Time
		accumulated float64
		lastScroll  Trigger
		currentURL  string
	)

	stopTimer := func() {
		if scrollTimer != nil {
			scrollTimer.Stop()
			scrollTimer = nil
			scrollC = nil
		}
	}
	defer stopTimer()

	for {
		select {
		case <-ctx.Done():
			return

		case t := <-w.events:
			switch t.Kind {
			case TriggerPageLoad:
				stopTimer()
				accumulated = 0
				currentURL = t.URL
				w.fire(t)

			case TriggerNavigation:
				if t.URL == currentURL {
					continue
				}
				stopTimer()
				accumulated = 0
				currentURL = t.URL
				w.fire(t)

			case TriggerScroll:
				accumulated += math.Abs(t.ScrollDelta)
				lastScroll = t
				stopTimer()
				scrollTimer = time.NewTimer(w.debounce)
				scrollC = scrollTimer.C
			}

		case <-scrollC:
			scrollTimer = nil
			scrollC = nil
			if accumulated > w.threshold {
				fired := lastScroll
				fired.ScrollDelta = accumulated
				accumulated = 0
				w.fire(fired)
			} else {
				w.logger.Debug("scroll settled below threshold", "accumulated", accumulated)
				accumulated = 0
			}
		}
	}
}
