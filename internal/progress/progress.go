// Package progress derives display metrics from task and run collections.
//
// Two aggregates live here and must not be mixed up: Aggregate works on the tasks
// of a single run, SuccessRate works on runs across the whole system.
package progress

import (
	"math"

	"cineflow/console/internal/model"
)

// Summary is the task-level progress of one run.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Running   int `json:"running"`
	Queued    int `json:"queued"`
	// Failed counts failed and download_failed tasks together.
	Failed  int `json:"failed"`
	Percent int `json:"percent"`
}

func Aggregate(tasks []model.Task) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case model.StatusCompleted:
			s.Completed++
		case model.StatusRunning:
			s.Running++
		case model.StatusQueued:
			s.Queued++
		case model.StatusFailed, model.StatusDownloadFailed:
			s.Failed++
		}
	}
	s.Percent = percent(s.Completed, s.Total)
	return s
}

// Stats is the system-wide overview shown on the dashboard.
type Stats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	SuccessRate int `json:"success_rate"`
}

// SuccessRate is the share of finished runs that completed. Queued and running
// runs are left out of the denominator.
func SuccessRate(runs []model.Run) int {
	finished, completed := 0, 0
	for _, r := range runs {
		if !r.Status.Final() {
			continue
		}
		finished++
		if r.Status == model.StatusCompleted {
			completed++
		}
	}
	return percent(completed, finished)
}

func Overview(runs []model.Run) Stats {
	active := 0
	for _, r := range runs {
		if !r.Status.Final() {
			active++
		}
	}
	return Stats{
		Total:       len(runs),
		Active:      active,
		SuccessRate: SuccessRate(runs),
	}
}

// RunPercent is the counter based completion of a single run. A run without tasks
// shows 0%.
func RunPercent(r model.Run) int {
	return percent(r.Completed, r.TotalTasks)
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
