package console

import (
	"context"
	"sync"

	"cineflow/console/internal/events"
	"cineflow/console/internal/filter"
	"cineflow/console/internal/model"
	"cineflow/console/internal/mutation"
	"cineflow/console/internal/poll"
	"cineflow/console/internal/progress"
)

// RunSnapshot is what the run detail view renders.
type RunSnapshot struct {
	Run       model.Run        `json:"run"`
	Tasks     []model.Task     `json:"tasks"`
	Summary   progress.Summary `json:"summary"`
	Pending   []string         `json:"pending"`
	State     poll.State       `json:"state"`
	LastError string           `json:"last_error,omitempty"`
}

// RunDetail tracks the tasks of one run until all of them are final. A retry on a
// converged run starts a fresh poller so the retried task is followed again.
type RunDetail struct {
	runID   string
	backend Backend
	opts    Options
	topic   string
	muts    *mutation.Manager

	mu       sync.Mutex
	run      model.Run
	poller   *poll.Poller[model.Task]
	state    poll.State
	fetchGen uint64
	lastErr  error
	disposed bool
}

func NewRunDetail(runID string, backend Backend, opts Options) *RunDetail {
	opts = opts.withDefaults()
	v := &RunDetail{
		runID:   runID,
		backend: backend,
		opts:    opts,
		topic:   RunTopic(runID),
		run:     model.Run{ID: runID},
	}
	v.muts = mutation.New(func(ctx context.Context, taskID string) error {
		_, err := backend.RetryTask(ctx, taskID)
		return err
	}, opts.Logger)
	return v
}

func (v *RunDetail) Topic() string { return v.topic }

// Start loads the run header and begins polling its tasks.
func (v *RunDetail) Start(ctx context.Context) {
	if run, err := v.backend.GetRun(ctx, v.runID); err == nil {
		v.mu.Lock()
		v.run = run
		v.mu.Unlock()
	} else {
		v.opts.Logger.Warn("run_header_failed", "run_id", v.runID, "error", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.startPollerLocked()
}

func (v *RunDetail) startPollerLocked() {
	if v.disposed {
		return
	}
	v.poller = poll.New(poll.Options[model.Task]{
		Name:       "run_tasks",
		Key:        v.runID,
		Interval:   v.opts.TaskInterval,
		Fetch:      v.fetch,
		OnSnapshot: v.onSnapshot,
		Settled:    v.settled,
		OnError:    v.onError,
		Logger:     v.opts.Logger,
		Metrics:    v.opts.Metrics,
	})
	v.state = poll.Polling
	v.poller.Start()
}

// settled looks at the merged view so a provisional retry keeps the poller running
// until an authoritative snapshot replaces it.
func (v *RunDetail) settled([]model.Task) bool {
	tasks := v.muts.Tasks()
	if !poll.AllFinal(tasks) {
		return false
	}
	v.mu.Lock()
	if v.state == poll.Polling {
		v.state = poll.Converged
	}
	v.mu.Unlock()
	v.opts.Hub.Publish(v.topic, events.PollConverged, progress.Aggregate(tasks))
	return true
}

func (v *RunDetail) fetch(ctx context.Context) ([]model.Task, error) {
	gen := v.muts.BeginFetch()
	tasks, err := v.backend.ListRunTasks(ctx, v.runID)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.fetchGen = gen
	v.mu.Unlock()
	return tasks, nil
}

func (v *RunDetail) onSnapshot(tasks []model.Task) {
	v.mu.Lock()
	gen := v.fetchGen
	v.lastErr = nil
	v.mu.Unlock()
	v.muts.ApplySnapshot(gen, tasks)
	v.opts.Hub.Publish(v.topic, events.TasksSnapshot, v.Snapshot())
}

func (v *RunDetail) onError(err error) {
	v.mu.Lock()
	v.lastErr = err
	v.mu.Unlock()
	v.opts.Hub.Publish(v.topic, events.PollFailed, err.Error())
}

// Snapshot returns the merged view: authoritative tasks with provisional retries on top.
func (v *RunDetail) Snapshot() RunSnapshot {
	tasks := v.muts.Tasks()
	v.mu.Lock()
	defer v.mu.Unlock()
	snap := RunSnapshot{
		Run:     v.run,
		Tasks:   tasks,
		Summary: progress.Aggregate(tasks),
		Pending: v.muts.PendingIDs(),
		State:   v.state,
	}
	if v.lastErr != nil {
		snap.LastError = v.lastErr.Error()
	}
	return snap
}

// Tasks applies c to the merged task list.
func (v *RunDetail) Tasks(c filter.Criteria) []model.Task {
	return filter.Tasks(v.muts.Tasks(), c)
}

func (v *RunDetail) Pending(taskID string) bool { return v.muts.Pending(taskID) }

// Retry submits a retry and, once accepted, reconciles with the backend without
// waiting for the next scheduled tick.
func (v *RunDetail) Retry(ctx context.Context, taskID string) error {
	if err := v.muts.Retry(ctx, taskID); err != nil {
		v.opts.Hub.Publish(v.topic, events.RetryFailed, map[string]string{"task_id": taskID, "error": err.Error()})
		return err
	}
	v.opts.Hub.Publish(v.topic, events.RetryAccepted, map[string]string{"task_id": taskID})
	v.opts.Hub.Publish(v.topic, events.TasksSnapshot, v.Snapshot())

	var refresh *poll.Poller[model.Task]
	v.mu.Lock()
	switch {
	case v.disposed:
	case v.poller == nil || v.state == poll.Converged:
		v.startPollerLocked()
	default:
		refresh = v.poller
	}
	v.mu.Unlock()
	if refresh != nil {
		refresh.Refresh()
	}
	return nil
}

// Done is closed when the current poller stops.
func (v *RunDetail) Done() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.poller == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return v.poller.Done()
}

// Dispose stops polling for good. Later retries still go to the backend but no
// longer restart polling.
func (v *RunDetail) Dispose() {
	v.mu.Lock()
	v.disposed = true
	v.state = poll.Disposed
	p := v.poller
	v.mu.Unlock()
	if p != nil {
		p.Dispose()
	}
}
