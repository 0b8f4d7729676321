package console

import (
	"context"
	"sync"

	"cineflow/console/internal/events"
	"cineflow/console/internal/filter"
	"cineflow/console/internal/model"
	"cineflow/console/internal/poll"
	"cineflow/console/internal/progress"
)

// RunRow is one line of the run list.
type RunRow struct {
	Run     model.Run `json:"run"`
	Percent int       `json:"percent"`
}

func Rows(runs []model.Run) []RunRow {
	rows := make([]RunRow, len(runs))
	for i, r := range runs {
		rows[i] = RunRow{Run: r, Percent: progress.RunPercent(r)}
	}
	return rows
}

// RunList refreshes the list of runs while any of them is still active.
type RunList struct {
	backend Backend
	opts    Options
	poller  *poll.Poller[model.Run]

	mu   sync.Mutex
	runs []model.Run
}

func NewRunList(backend Backend, opts Options) *RunList {
	opts = opts.withDefaults()
	v := &RunList{backend: backend, opts: opts}
	v.poller = poll.New(poll.Options[model.Run]{
		Name:     "runs",
		Key:      RunsTopic,
		Interval: opts.RunInterval,
		Fetch:    backend.ListRuns,
		OnSnapshot: func(runs []model.Run) {
			v.mu.Lock()
			v.runs = runs
			v.mu.Unlock()
			opts.Hub.Publish(RunsTopic, events.RunsSnapshot, Rows(runs))
		},
		OnError: func(err error) {
			opts.Hub.Publish(RunsTopic, events.PollFailed, err.Error())
		},
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	return v
}

func (v *RunList) Start() { v.poller.Start() }

func (v *RunList) Dispose() { v.poller.Dispose() }

func (v *RunList) Done() <-chan struct{} { return v.poller.Done() }

func (v *RunList) State() poll.State { return v.poller.State() }

// Runs returns the last snapshot narrowed by pred.
func (v *RunList) Runs(pred filter.Predicate[model.Run]) []model.Run {
	v.mu.Lock()
	defer v.mu.Unlock()
	return filter.Apply(v.runs, pred)
}

// Delete removes a run on the backend, then from the local snapshot.
func (v *RunList) Delete(ctx context.Context, runID string) error {
	if err := v.backend.DeleteRun(ctx, runID); err != nil {
		return err
	}
	v.mu.Lock()
	kept := v.runs[:0:0]
	for _, r := range v.runs {
		if r.ID != runID {
			kept = append(kept, r)
		}
	}
	v.runs = kept
	v.mu.Unlock()
	v.opts.Hub.Publish(RunsTopic, events.RunsSnapshot, Rows(kept))
	return nil
}
