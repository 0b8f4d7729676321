package console

import (
	"context"
	"fmt"

	"cineflow/console/internal/events"
	"cineflow/console/internal/progress"
)

const recentRuns = 5

type DashboardView struct {
	Stats  progress.Stats `json:"stats"`
	Recent []RunRow       `json:"recent"`
}

// LoadDashboard computes run statistics over every run the backend knows.
func LoadDashboard(ctx context.Context, backend Backend, opts Options) (DashboardView, error) {
	opts = opts.withDefaults()
	runs, err := backend.ListRuns(ctx)
	if err != nil {
		return DashboardView{}, fmt.Errorf("load dashboard: %w", err)
	}
	recent := runs
	if len(recent) > recentRuns {
		recent = recent[:recentRuns]
	}
	view := DashboardView{Stats: progress.Overview(runs), Recent: Rows(recent)}
	opts.Hub.Publish(DashboardTopic, events.DashboardSnapshot, view)
	return view, nil
}
