// Package console holds the views of the operator console. Each view owns its own
// collections; views never share state with one another.
package console

import (
	"context"
	"log/slog"
	"time"

	"cineflow/console/internal/events"
	"cineflow/console/internal/model"
	"cineflow/console/internal/poll"
	"cineflow/console/internal/telemetry"
)

// Backend is the part of the API the views read and mutate. *client.Client
// implements it.
type Backend interface {
	ListRuns(ctx context.Context) ([]model.Run, error)
	GetRun(ctx context.Context, id string) (model.Run, error)
	DeleteRun(ctx context.Context, id string) error
	ListRunTasks(ctx context.Context, runID string) ([]model.Task, error)
	RetryTask(ctx context.Context, id string) (model.Task, error)
}

type Options struct {
	Hub                *events.Hub
	Logger             *slog.Logger
	Metrics            *telemetry.Metrics
	TaskInterval       time.Duration
	RunInterval        time.Duration
	ResultsConcurrency int
}

func (o Options) withDefaults() Options {
	if o.Hub == nil {
		o.Hub = events.NewHub()
	}
	if o.Logger == nil {
		o.Logger = telemetry.Discard()
	}
	if o.Metrics == nil {
		o.Metrics = telemetry.NewIsolatedMetrics()
	}
	if o.TaskInterval <= 0 {
		o.TaskInterval = poll.DefaultTaskInterval
	}
	if o.RunInterval <= 0 {
		o.RunInterval = poll.DefaultRunInterval
	}
	if o.ResultsConcurrency <= 0 {
		o.ResultsConcurrency = 4
	}
	return o
}

const (
	RunsTopic      = "runs"
	DashboardTopic = "dashboard"
)

func RunTopic(runID string) string { return "run:" + runID }
