// Package poll re-fetches a collection on a fixed interval until every entity in it
// has reached a final status, or until the owner disposes of the poller.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cineflow/console/internal/model"
	"cineflow/console/internal/schedule"
	"cineflow/console/internal/telemetry"
)

type State string

const (
	Polling   State = "polling"
	Converged State = "converged"
	Disposed  State = "disposed"
)

const (
	DefaultTaskInterval = 3 * time.Second
	DefaultRunInterval  = 5 * time.Second
)

type Options[T model.Stateful] struct {
	// Name labels metrics and logs, e.g. "run_tasks".
	Name string
	// Key identifies the monitored entity in logs.
	Key      string
	Interval time.Duration
	Fetch    func(ctx context.Context) ([]T, error)
	// OnSnapshot receives every successful fetch while the poller is polling. It
	// runs with the poller locked and must not call back into it.
	OnSnapshot func(items []T)
	// Settled decides convergence after a snapshot was delivered. It defaults to
	// AllFinal on the fetched items and runs with the poller locked.
	Settled func(items []T) bool
	// OnError is called for the first failed fetch only.
	OnError func(err error)
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Poller owns exactly one scheduled tick at a time.
type Poller[T model.Stateful] struct {
	opts   Options[T]
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	state    State
	started  bool
	ticking  bool
	notified bool
	handle   *schedule.Handle
}

func New[T model.Stateful](opts Options[T]) *Poller[T] {
	if opts.Interval <= 0 {
		opts.Interval = DefaultTaskInterval
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewIsolatedMetrics()
	}
	if opts.Settled == nil {
		opts.Settled = AllFinal[T]
	}
	if opts.Name == "" {
		opts.Name = "poller"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller[T]{
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  Polling,
	}
}

// Start runs the first tick immediately. Calling Start more than once, or after
// Dispose, does nothing.
func (p *Poller[T]) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.state != Polling {
		return
	}
	p.started = true
	p.opts.Metrics.PollersActive.Inc()
	p.handle = schedule.After(0, p.tick)
}

// Refresh replaces the pending tick with an immediate one. It reports false when no
// tick was pending (not started, mid-fetch, converged or disposed).
func (p *Poller[T]) Refresh() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Polling || !p.started || p.ticking {
		return false
	}
	if !p.handle.Cancel() {
		return false
	}
	p.handle = schedule.After(0, p.tick)
	return true
}

// Dispose stops the poller from any state. The pending tick is cancelled, an
// in-flight fetch has its context cancelled and its result is dropped.
func (p *Poller[T]) Dispose() {
	p.mu.Lock()
	if p.state == Disposed {
		p.mu.Unlock()
		return
	}
	wasPolling := p.state == Polling
	p.state = Disposed
	p.handle.Cancel()
	p.handle = nil
	if wasPolling && p.started {
		p.opts.Metrics.PollersActive.Dec()
	}
	p.mu.Unlock()

	p.cancel()
	if wasPolling {
		close(p.done)
	}
	p.opts.Logger.Debug("poll_disposed", "poller", p.opts.Name, "key", p.opts.Key)
}

func (p *Poller[T]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done is closed once the poller leaves the polling state.
func (p *Poller[T]) Done() <-chan struct{} {
	return p.done
}

func (p *Poller[T]) tick() {
	p.mu.Lock()
	if p.state != Polling {
		p.mu.Unlock()
		return
	}
	p.ticking = true
	p.mu.Unlock()

	p.opts.Metrics.PollTicks.WithLabelValues(p.opts.Name).Inc()
	items, err := p.opts.Fetch(p.ctx)

	var notify func(error)
	p.mu.Lock()
	p.ticking = false
	switch {
	case p.state != Polling:
	case err != nil:
		p.opts.Metrics.PollFailures.WithLabelValues(p.opts.Name).Inc()
		p.opts.Logger.Warn("poll_fetch_failed", "poller", p.opts.Name, "key", p.opts.Key, "error", err)
		if !p.notified && p.opts.OnError != nil {
			p.notified = true
			notify = p.opts.OnError
		}
		p.handle = schedule.After(p.opts.Interval, p.tick)
	default:
		p.notified = false
		if p.opts.OnSnapshot != nil {
			p.opts.OnSnapshot(items)
		}
		if p.opts.Settled(items) {
			p.converge(len(items))
		} else {
			p.handle = schedule.After(p.opts.Interval, p.tick)
		}
	}
	p.mu.Unlock()

	if notify != nil {
		notify(err)
	}
}

// converge is called with p.mu held.
func (p *Poller[T]) converge(n int) {
	p.state = Converged
	p.handle = nil
	p.opts.Metrics.PollConverged.WithLabelValues(p.opts.Name).Inc()
	p.opts.Metrics.PollersActive.Dec()
	close(p.done)
	p.cancel()
	p.opts.Logger.Info("poll_converged", "poller", p.opts.Name, "key", p.opts.Key, "items", n)
}

// AllFinal reports whether no item is queued or running. An empty collection is
// considered final.
func AllFinal[T model.Stateful](items []T) bool {
	for _, it := range items {
		if !it.StatusOf().Final() {
			return false
		}
	}
	return true
}
