// Package cli is the cineflow command line front end.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cineflow/console/internal/client"
	"cineflow/console/internal/config"
	"cineflow/console/internal/console"
	"cineflow/console/internal/events"
	"cineflow/console/internal/telemetry"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// App carries what every command shares: resolved config, output streams and the
// lazily built API client.
type App struct {
	cfg     config.Config
	out     io.Writer
	errOut  io.Writer
	jsonOut bool
	logger  *slog.Logger
	metrics *telemetry.Metrics
	hub     *events.Hub
	now     func() time.Time
	// interactive reports whether the live TUI may take over the terminal.
	interactive func() bool
	client      *client.Client
}

func NewApp(cfg config.Config, out, errOut io.Writer) *App {
	return &App{
		cfg:     cfg,
		out:     out,
		errOut:  errOut,
		metrics: telemetry.NewIsolatedMetrics(),
		hub:     events.NewHub(),
		now:     time.Now,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		},
	}
}

func NewRootCommand(app *App) *cobra.Command {
	var apiBase, token, logLevel string
	root := &cobra.Command{
		Use:           "cineflow",
		Short:         "Track and manage video generation runs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if apiBase != "" {
				app.cfg.APIBase = apiBase
			}
			if token != "" {
				app.cfg.AuthToken = token
			}
			if logLevel != "" {
				app.cfg.LogLevel = logLevel
			}
			if err := app.cfg.Validate(); err != nil {
				return err
			}
			app.logger = telemetry.NewLoggerTo(app.errOut, app.cfg.LogFormat, app.cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&apiBase, "api-base", "", "API base URL (default from CINEFLOW_API_BASE or credentials)")
	root.PersistentFlags().StringVar(&token, "token", "", "Bearer token, overrides the stored login")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&app.jsonOut, "json", false, "Print JSON instead of tables")

	root.AddCommand(newLoginCommand(app))
	root.AddCommand(newLogoutCommand(app))
	root.AddCommand(newStoryboardsCommand(app))
	root.AddCommand(newSegmentsCommand(app))
	root.AddCommand(newRunsCommand(app))
	root.AddCommand(newTasksCommand(app))
	root.AddCommand(newResultsCommand(app))
	root.AddCommand(newDashboardCommand(app))
	root.AddCommand(newModelsCommand(app))
	root.AddCommand(newProvidersCommand(app))
	return root
}

func (a *App) log() *slog.Logger {
	if a.logger == nil {
		a.logger = telemetry.Discard()
	}
	return a.logger
}

func (a *App) api() *client.Client {
	if a.client == nil {
		a.client = client.New(client.Options{
			BaseURL:  a.cfg.APIBase,
			Token:    a.cfg.TokenSource(),
			Timeout:  a.cfg.HTTPTimeout,
			PageSize: a.cfg.PageSize,
			Logger:   a.log(),
			Metrics:  a.metrics,
		})
	}
	return a.client
}

func (a *App) consoleOptions() console.Options {
	return console.Options{
		Hub:                a.hub,
		Logger:             a.log(),
		Metrics:            a.metrics,
		TaskInterval:       a.cfg.TaskPollInterval,
		RunInterval:        a.cfg.RunPollInterval,
		ResultsConcurrency: a.cfg.ResultsConcurrency,
	}
}

// render prints v as JSON when --json is set, otherwise the table built by rows.
func (a *App) render(v any, headers []string, rows [][]string) error {
	if a.jsonOut {
		return a.writeJSON(v)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(a.out, "(none)")
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(a.out, t.String())
	return err
}

func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
