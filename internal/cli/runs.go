package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cineflow/console/internal/console"
	"cineflow/console/internal/events"
	"cineflow/console/internal/filter"
	"cineflow/console/internal/model"
	"cineflow/console/internal/progress"
	"cineflow/console/internal/tui"

	"github.com/spf13/cobra"
)

const watchBuffer = 64

func newRunsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Create, inspect and follow runs",
	}
	cmd.AddCommand(newRunsListCommand(app))
	cmd.AddCommand(newRunsCreateCommand(app))

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its task summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			run, err := app.api().GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			tasks, err := app.api().ListRunTasks(ctx, run.ID)
			if err != nil {
				return err
			}
			sum := progress.Aggregate(tasks)
			if app.jsonOut {
				return app.render(console.RunSnapshot{Run: run, Tasks: tasks, Summary: sum}, nil, nil)
			}
			app.printf("Run %s  %s\n", run.ID, tui.StatusStyle(run.Status).Render(string(run.Status)))
			app.printf("Storyboard %s  model %s  created %s\n", run.StoryboardName, run.ModelID, formatTime(run.CreatedAt.Time))
			app.printf("%s\n", summaryLine(sum))
			return nil
		},
	})

	var plain bool
	watch := &cobra.Command{
		Use:   "watch <run-id>",
		Short: "Follow a run until all of its tasks are final",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.watchRun(cmd.Context(), args[0], plain)
		},
	}
	watch.Flags().BoolVar(&plain, "plain", false, "Print progress lines instead of the interactive view")
	cmd.AddCommand(watch)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a finished run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.api().DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			app.printf("Deleted run %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func newRunsListCommand(app *App) *cobra.Command {
	var (
		statuses []string
		since    time.Duration
		follow   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wanted := make([]model.Status, len(statuses))
			for i, s := range statuses {
				wanted[i] = model.Status(s)
			}
			pred := filter.And(filter.RunStatusIn(wanted...))
			if since > 0 {
				pred = filter.And(pred, filter.RunsCreatedWithin(since, app.now()))
			}
			if follow {
				return app.followRuns(cmd.Context(), pred)
			}
			runs, err := app.api().ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			return app.renderRuns(filter.Apply(runs, pred))
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only runs in these statuses")
	cmd.Flags().DurationVar(&since, "since", 0, "Only runs created within this duration, e.g. 24h")
	cmd.Flags().BoolVar(&follow, "follow", false, "Keep refreshing while any run is active")
	return cmd
}

func (a *App) renderRuns(runs []model.Run) error {
	rows := make([][]string, 0, len(runs))
	for _, row := range console.Rows(runs) {
		r := row.Run
		rows = append(rows, []string{
			r.ID,
			r.StoryboardName,
			r.ModelID,
			tui.StatusStyle(r.Status).Render(string(r.Status)),
			strconv.Itoa(row.Percent) + "%",
			fmt.Sprintf("%d/%d", r.Completed, r.TotalTasks),
			strconv.Itoa(r.Failed + r.DownloadFailed),
			formatTime(r.CreatedAt.Time),
		})
	}
	return a.render(runs, []string{"ID", "STORYBOARD", "MODEL", "STATUS", "PROGRESS", "DONE", "FAILED", "CREATED"}, rows)
}

// followRuns reprints the run table on every snapshot until no run is active.
func (a *App) followRuns(ctx context.Context, pred filter.Predicate[model.Run]) error {
	list := console.NewRunList(a.api(), a.consoleOptions())
	_, ch, unsubscribe := a.hub.Subscribe(console.RunsTopic, watchBuffer)
	defer unsubscribe()
	list.Start()
	defer list.Dispose()

	printed := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-list.Done():
			if printed {
				return nil
			}
			return a.renderRuns(list.Runs(pred))
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			switch evt.Type {
			case events.RunsSnapshot:
				printed = true
				if err := a.renderRuns(list.Runs(pred)); err != nil {
					return err
				}
			case events.PollFailed:
				fmt.Fprintf(a.errOut, "refresh failed: %v\n", evt.Payload)
			}
		}
	}
}

func newRunsCreateCommand(app *App) *cobra.Command {
	var (
		req   model.RunCreateRequest
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a run for a storyboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := app.api().CreateRun(cmd.Context(), req)
			if err != nil {
				return err
			}
			app.log().Info("run_created", "run_id", run.ID, "total_tasks", run.TotalTasks)
			if app.jsonOut && !watch {
				return app.render(run, nil, nil)
			}
			app.printf("Created run %s (%d tasks)\n", run.ID, run.TotalTasks)
			if watch {
				return app.watchRun(cmd.Context(), run.ID, false)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.StoryboardID, "storyboard", "", "Storyboard id")
	f.StringVar(&req.ModelID, "model", "sora2", "Model id")
	f.IntVar(&req.GenCount, "gen-count", 1, "Versions to generate per segment (1-10)")
	f.IntVar(&req.Concurrency, "concurrency", 3, "Tasks executed in parallel (1-50)")
	f.StringVar(&req.Range, "range", model.RangeAll, `Segments to include, "all" or e.g. "1-3,5"`)
	f.StringVar((*string)(&req.OutputMode), "output-mode", string(model.OutputCentralized), "centralized, in_place or custom")
	f.StringVar(&req.OutputPath, "output-path", "", "Output directory for custom output mode")
	f.StringVar((*string)(&req.RoutingStrategy), "routing", string(model.RoutingDefault), "default, weighted or failover")
	f.BoolVar(&req.DryRun, "dry-run", false, "Build prompts without generating video")
	f.BoolVar(&req.Force, "force", false, "Regenerate segments that already have output")
	f.BoolVar(&watch, "watch", false, "Follow the run after creating it")
	_ = cmd.MarkFlagRequired("storyboard")
	return cmd
}

// watchRun follows a run with the live view on a terminal, otherwise with one line
// per change of the task summary.
func (a *App) watchRun(ctx context.Context, runID string, plain bool) error {
	detail := console.NewRunDetail(runID, a.api(), a.consoleOptions())
	defer detail.Dispose()
	if !plain && !a.jsonOut && a.interactive() {
		return tui.Run(ctx, detail, a.hub)
	}

	_, ch, unsubscribe := a.hub.Subscribe(detail.Topic(), watchBuffer)
	defer unsubscribe()
	detail.Start(ctx)
	done := detail.Done()

	var last *progress.Summary
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return a.finishWatch(ctx, runID, detail.Snapshot())
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			switch evt.Type {
			case events.TasksSnapshot:
				snap := detail.Snapshot()
				if last != nil && *last == snap.Summary {
					continue
				}
				last = &snap.Summary
				a.printf("%s  %s\n", a.now().Format("15:04:05"), summaryLine(snap.Summary))
			case events.PollFailed:
				fmt.Fprintf(a.errOut, "poll failed: %v\n", evt.Payload)
			case events.PollConverged:
				return a.finishWatch(ctx, runID, detail.Snapshot())
			}
		}
	}
}

func (a *App) finishWatch(ctx context.Context, runID string, snap console.RunSnapshot) error {
	status := snap.Run.Status
	if run, err := a.api().GetRun(ctx, runID); err == nil {
		status = run.Status
	} else if !errors.Is(err, context.Canceled) {
		a.log().Warn("final_run_status_failed", "run_id", runID, "error", err)
	}
	if a.jsonOut {
		snap.Run.Status = status
		return a.render(snap, nil, nil)
	}
	a.printf("Run %s %s: %s\n", runID, status, summaryLine(snap.Summary))
	return nil
}

func summaryLine(s progress.Summary) string {
	return fmt.Sprintf("%3d%%  completed %d/%d  running %d  queued %d  failed %d",
		s.Percent, s.Completed, s.Total, s.Running, s.Queued, s.Failed)
}
