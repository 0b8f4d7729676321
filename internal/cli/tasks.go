package cli

import (
	"strconv"

	"cineflow/console/internal/filter"
	"cineflow/console/internal/model"
	"cineflow/console/internal/tui"

	"github.com/spf13/cobra"
)

type criteriaFlags struct {
	media  string
	date   string
	status string
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.media, "media", "all", "all, video or image")
	cmd.Flags().StringVar(&f.date, "date", "all", "all, today or week")
	cmd.Flags().StringVar(&f.status, "status", "all", "all or failed_retryable")
}

func (f criteriaFlags) criteria(app *App) (filter.Criteria, error) {
	media, err := filter.ParseMedia(f.media)
	if err != nil {
		return filter.Criteria{}, err
	}
	date, err := filter.ParseDate(f.date)
	if err != nil {
		return filter.Criteria{}, err
	}
	status, err := filter.ParseStatus(f.status)
	if err != nil {
		return filter.Criteria{}, err
	}
	return filter.Criteria{Media: media, Date: date, Status: status, Now: app.now}, nil
}

func newTasksCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and retry the tasks of a run",
	}

	var cf criteriaFlags
	list := &cobra.Command{
		Use:   "list <run-id>",
		Short: "List the tasks of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cf.criteria(app)
			if err != nil {
				return err
			}
			tasks, err := app.api().ListRunTasks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.renderTasks(filter.Tasks(tasks, c))
		},
	}
	cf.register(list)
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := app.api().GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.renderTasks([]model.Task{task})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "retry <task-id>",
		Short: "Queue a failed task again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := app.api().RetryTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if app.jsonOut {
				return app.render(task, nil, nil)
			}
			app.printf("Task %s is %s\n", task.ID, task.Status)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "metadata <task-id>",
		Short: "Print the metadata document of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task, err := app.api().GetTask(ctx, args[0])
			if err != nil {
				return err
			}
			doc, err := app.api().TaskMetadata(ctx, task)
			if err != nil {
				return err
			}
			return app.writeJSON(doc)
		},
	})
	return cmd
}

func (a *App) renderTasks(tasks []model.Task) error {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		errCode := "-"
		if t.ErrorCode != nil {
			errCode = string(*t.ErrorCode)
		}
		video := "-"
		if t.VideoURL != nil {
			video = *t.VideoURL
		}
		rows = append(rows, []string{
			t.ID,
			strconv.Itoa(t.SegmentIndex),
			tui.StatusStyle(t.Status).Render(string(t.Status)),
			errCode,
			strconv.FormatBool(t.Retryable),
			video,
		})
	}
	return a.render(tasks, []string{"ID", "SEGMENT", "STATUS", "ERROR", "RETRYABLE", "VIDEO"}, rows)
}
