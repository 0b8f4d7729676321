package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cineflow/console/internal/model"
)

// scripted returns the queued responses in order and repeats the last one.
type scripted struct {
	mu    sync.Mutex
	calls int
	steps []func(ctx context.Context) ([]model.Task, error)
}

func (s *scripted) fetch(ctx context.Context) ([]model.Task, error) {
	s.mu.Lock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	step := s.steps[i]
	s.mu.Unlock()
	return step(ctx)
}

func (s *scripted) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func tasks(statuses ...model.Status) func(context.Context) ([]model.Task, error) {
	return func(context.Context) ([]model.Task, error) {
		out := make([]model.Task, len(statuses))
		for i, st := range statuses {
			out[i] = model.Task{ID: string(rune('a' + i)), Status: st}
		}
		return out, nil
	}
}

func failing(context.Context) ([]model.Task, error) {
	return nil, errors.New("boom")
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPollerConvergesAndStopsFetching(t *testing.T) {
	src := &scripted{steps: []func(context.Context) ([]model.Task, error){
		tasks(model.StatusRunning, model.StatusQueued),
		tasks(model.StatusCompleted, model.StatusRunning),
		tasks(model.StatusCompleted, model.StatusFailed),
	}}
	var snapshots atomic.Int32
	p := New(Options[model.Task]{
		Name:       "test",
		Interval:   5 * time.Millisecond,
		Fetch:      src.fetch,
		OnSnapshot: func([]model.Task) { snapshots.Add(1) },
	})
	p.Start()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not converge")
	}
	if p.State() != Converged {
		t.Fatalf("expected converged, got %v", p.State())
	}
	if n := src.count(); n != 3 {
		t.Fatalf("expected 3 fetches, got %d", n)
	}
	if n := snapshots.Load(); n != 3 {
		t.Fatalf("expected 3 snapshots, got %d", n)
	}

	time.Sleep(30 * time.Millisecond)
	if n := src.count(); n != 3 {
		t.Fatalf("fetched after convergence: %d", n)
	}
}

func TestPollerEmptySetConverges(t *testing.T) {
	src := &scripted{steps: []func(context.Context) ([]model.Task, error){tasks()}}
	p := New(Options[model.Task]{Interval: 5 * time.Millisecond, Fetch: src.fetch})
	p.Start()
	<-p.Done()
	if p.State() != Converged || src.count() != 1 {
		t.Fatalf("state=%v fetches=%d", p.State(), src.count())
	}
}

func TestPollerKeepsPollingAfterFailure(t *testing.T) {
	src := &scripted{steps: []func(context.Context) ([]model.Task, error){
		failing,
		failing,
		tasks(model.StatusCompleted),
	}}
	var notified atomic.Int32
	p := New(Options[model.Task]{
		Interval: 5 * time.Millisecond,
		Fetch:    src.fetch,
		OnError:  func(error) { notified.Add(1) },
	})
	p.Start()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not recover from failures")
	}
	if p.State() != Converged || src.count() != 3 {
		t.Fatalf("state=%v fetches=%d", p.State(), src.count())
	}
	if n := notified.Load(); n != 1 {
		t.Fatalf("expected one notification for one failure streak, got %d", n)
	}
}

func TestPollerReportsEachFailureStreak(t *testing.T) {
	src := &scripted{steps: []func(context.Context) ([]model.Task, error){
		failing,
		tasks(model.StatusRunning),
		failing,
		failing,
		tasks(model.StatusRunning),
		tasks(model.StatusCompleted),
	}}
	var notified atomic.Int32
	p := New(Options[model.Task]{
		Interval: 5 * time.Millisecond,
		Fetch:    src.fetch,
		OnError:  func(error) { notified.Add(1) },
	})
	p.Start()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not converge")
	}
	if n := src.count(); n != 6 {
		t.Fatalf("expected 6 fetches, got %d", n)
	}
	if n := notified.Load(); n != 2 {
		t.Fatalf("expected 2 notifications, got %d", n)
	}
}

func TestPollerDisposeDropsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var delivered atomic.Int32
	p := New(Options[model.Task]{
		Interval: 5 * time.Millisecond,
		Fetch: func(ctx context.Context) ([]model.Task, error) {
			close(started)
			<-release
			return []model.Task{{ID: "a", Status: model.StatusRunning}}, nil
		},
		OnSnapshot: func([]model.Task) { delivered.Add(1) },
	})
	p.Start()
	<-started

	p.Dispose()
	if p.State() != Disposed {
		t.Fatalf("expected disposed, got %v", p.State())
	}
	close(release)

	time.Sleep(20 * time.Millisecond)
	if n := delivered.Load(); n != 0 {
		t.Fatalf("in-flight result delivered %d times after dispose", n)
	}
	if p.State() != Disposed {
		t.Fatalf("state changed after dispose: %v", p.State())
	}
	select {
	case <-p.Done():
	default:
		t.Fatal("done not closed after dispose")
	}
}

func TestPollerDisposeCancelsFetchContext(t *testing.T) {
	cancelled := make(chan struct{})
	p := New(Options[model.Task]{
		Fetch: func(ctx context.Context) ([]model.Task, error) {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		},
	})
	p.Start()
	time.Sleep(5 * time.Millisecond)
	p.Dispose()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("fetch context not cancelled")
	}
}

func TestPollerDisposeIsIdempotentAndStopsStart(t *testing.T) {
	src := &scripted{steps: []func(context.Context) ([]model.Task, error){tasks(model.StatusRunning)}}
	p := New(Options[model.Task]{Fetch: src.fetch})
	p.Dispose()
	p.Dispose()
	p.Start()
	time.Sleep(10 * time.Millisecond)
	if n := src.count(); n != 0 {
		t.Fatalf("disposed poller fetched %d times", n)
	}
	if p.State() != Disposed {
		t.Fatalf("expected disposed, got %v", p.State())
	}
}

func TestPollerRefreshRunsTickEarly(t *testing.T) {
	src := &scripted{steps: []func(context.Context) ([]model.Task, error){tasks(model.StatusRunning)}}
	p := New(Options[model.Task]{Interval: time.Hour, Fetch: src.fetch})
	p.Start()
	defer p.Dispose()

	waitFor(t, "first fetch", func() bool { return src.count() == 1 })
	waitFor(t, "refresh accepted", p.Refresh)
	waitFor(t, "refreshed fetch", func() bool { return src.count() == 2 })
}

func TestAllFinal(t *testing.T) {
	if !AllFinal[model.Task](nil) {
		t.Fatalf("empty set should be final")
	}
	if !AllFinal([]model.Run{{Status: model.StatusCompleted}, {Status: model.StatusFailed}}) {
		t.Fatalf("completed and failed runs should be final")
	}
	if AllFinal([]model.Run{{Status: model.StatusCompleted}, {Status: model.StatusQueued}}) {
		t.Fatalf("queued run should not be final")
	}
	if !AllFinal([]model.Task{{Status: model.StatusDownloadFailed}}) {
		t.Fatalf("download_failed task should be final")
	}
}
