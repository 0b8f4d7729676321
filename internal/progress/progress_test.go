package progress

import (
	"testing"

	"cineflow/console/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tasksWith(statuses ...model.Status) []model.Task {
	out := make([]model.Task, len(statuses))
	for i, s := range statuses {
		out[i] = model.Task{ID: string(rune('a' + i)), Status: s}
	}
	return out
}

func TestAggregateEmpty(t *testing.T) {
	require.Equal(t, Summary{}, Aggregate(nil))
}

func TestAggregateAllCompleted(t *testing.T) {
	s := Aggregate(tasksWith(model.StatusCompleted, model.StatusCompleted, model.StatusCompleted))
	require.Equal(t, 100, s.Percent)
	require.Equal(t, 3, s.Completed)
}

func TestAggregateMixed(t *testing.T) {
	s := Aggregate(tasksWith(
		model.StatusCompleted,
		model.StatusRunning,
		model.StatusQueued,
		model.StatusFailed,
		model.StatusDownloadFailed,
		model.StatusCompleted,
	))
	assert.Equal(t, Summary{Total: 6, Completed: 2, Running: 1, Queued: 1, Failed: 2, Percent: 33}, s)

	s = Aggregate(tasksWith(model.StatusCompleted, model.StatusQueued))
	assert.Equal(t, 50, s.Percent)
	s = Aggregate(tasksWith(model.StatusCompleted, model.StatusCompleted, model.StatusQueued))
	assert.Equal(t, 67, s.Percent)
}

func TestSuccessRateIgnoresActiveRuns(t *testing.T) {
	runs := []model.Run{
		{ID: "1", Status: model.StatusCompleted},
		{ID: "2", Status: model.StatusCompleted},
		{ID: "3", Status: model.StatusRunning},
	}
	require.Equal(t, 100, SuccessRate(runs))

	runs = append(runs, model.Run{ID: "4", Status: model.StatusFailed}, model.Run{ID: "5", Status: model.StatusQueued})
	require.Equal(t, 67, SuccessRate(runs))
	require.Equal(t, Stats{Total: 5, Active: 2, SuccessRate: 67}, Overview(runs))
}

func TestSuccessRateNoFinishedRuns(t *testing.T) {
	require.Equal(t, 0, SuccessRate([]model.Run{{Status: model.StatusRunning}}))
	require.Equal(t, 0, SuccessRate(nil))
}

func TestRunPercent(t *testing.T) {
	require.Equal(t, 0, RunPercent(model.Run{TotalTasks: 0}))
	require.Equal(t, 25, RunPercent(model.Run{TotalTasks: 20, Completed: 5, Failed: 2}))
}
