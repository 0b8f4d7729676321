package cli

import (
	"cineflow/console/internal/console"
	"cineflow/console/internal/model"

	"github.com/spf13/cobra"
)

func newResultsCommand(app *App) *cobra.Command {
	var cf criteriaFlags
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List completed tasks across all runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cf.criteria(app)
			if err != nil {
				return err
			}
			tasks, err := console.LoadResults(cmd.Context(), app.api(), c, app.consoleOptions())
			if err != nil {
				return err
			}
			return app.renderTasks(tasks)
		},
	}
	cf.register(cmd)
	return cmd
}

func newDashboardCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show run statistics and the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := console.LoadDashboard(cmd.Context(), app.api(), app.consoleOptions())
			if err != nil {
				return err
			}
			if app.jsonOut {
				return app.render(view, nil, nil)
			}
			app.printf("Runs %d  active %d  success rate %d%%\n", view.Stats.Total, view.Stats.Active, view.Stats.SuccessRate)
			runs := make([]model.Run, len(view.Recent))
			for i, row := range view.Recent {
				runs[i] = row.Run
			}
			return app.renderRuns(runs)
		},
	}
}
