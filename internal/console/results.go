package console

import (
	"context"
	"fmt"

	"cineflow/console/internal/filter"
	"cineflow/console/internal/model"
	"cineflow/console/internal/normalize"

	"golang.org/x/sync/errgroup"
)

// LoadResults collects the completed tasks of every run, newest run first, and
// applies c. Tasks without created_at inherit it from their run. The task lists are
// fetched concurrently; one failure fails the whole load.
func LoadResults(ctx context.Context, backend Backend, c filter.Criteria, opts Options) ([]model.Task, error) {
	opts = opts.withDefaults()
	runs, err := backend.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}

	perRun := make([][]model.Task, len(runs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.ResultsConcurrency)
	for i, run := range runs {
		i, run := i, run
		g.Go(func() error {
			tasks, err := backend.ListRunTasks(gctx, run.ID)
			if err != nil {
				return fmt.Errorf("load results for run %s: %w", run.ID, err)
			}
			perRun[i] = normalize.WithRunCreatedAt(tasks, run)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	completed := filter.Predicate[model.Task](func(t model.Task) bool { return t.Status == model.StatusCompleted })
	pred := filter.And(completed, c.Predicate())
	var out []model.Task
	for _, tasks := range perRun {
		out = append(out, filter.Apply(tasks, pred)...)
	}
	return out, nil
}
