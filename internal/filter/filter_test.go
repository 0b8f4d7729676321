package filter

import (
	"testing"
	"time"

	"cineflow/console/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 15, 0, 0, 0, time.Local)

func at(t time.Time) *model.Timestamp {
	ts := model.NewTimestamp(t)
	return &ts
}

func TestVideoWeekScenarioYieldsNothing(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Status: model.StatusCompleted, CreatedAt: at(now.Add(-time.Hour))},
		{ID: "b", Status: model.StatusCompleted, VideoURL: model.StringPtr("x"), CreatedAt: at(now.Add(-8 * 24 * time.Hour))},
	}
	got := Tasks(tasks, Criteria{Media: MediaVideo, Date: DateWeek, Now: func() time.Time { return now }})
	require.Empty(t, got)
}

func TestMissingCreatedAtIsNotExcludedByDate(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Status: model.StatusFailed, Retryable: true},
		{ID: "b", Status: model.StatusFailed, Retryable: false},
	}
	c := Criteria{Date: DateToday, Status: StatusFailedRetryable, Now: func() time.Time { return now }}
	got := Tasks(tasks, c)
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].ID)
}

func TestTodayMatchesLocalCalendarDay(t *testing.T) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	tasks := []model.Task{
		{ID: "today", CreatedAt: at(midnight.Add(time.Minute))},
		{ID: "yesterday", CreatedAt: at(midnight.Add(-time.Minute))},
	}
	got := Apply(tasks, ByDate(DateToday, now))
	require.Len(t, got, 1)
	assert.Equal(t, "today", got[0].ID)
}

func TestImageMediaKeepsTasksWithoutVideo(t *testing.T) {
	tasks := []model.Task{
		{ID: "v", VideoURL: model.StringPtr("http://h/v.mp4")},
		{ID: "i"},
	}
	got := Apply(tasks, ByMedia(MediaImage))
	require.Len(t, got, 1)
	assert.Equal(t, "i", got[0].ID)
	assert.Len(t, Apply(tasks, ByMedia(MediaAll)), 2)
}

func TestFailedRetryableIncludesDownloadFailed(t *testing.T) {
	tasks := []model.Task{
		{ID: "dl", Status: model.StatusDownloadFailed, Retryable: true},
		{ID: "ok", Status: model.StatusCompleted, Retryable: true},
		{ID: "q", Status: model.StatusQueued},
	}
	got := Apply(tasks, ByStatus(StatusFailedRetryable))
	require.Len(t, got, 1)
	assert.Equal(t, "dl", got[0].ID)
}

func TestRunPredicates(t *testing.T) {
	runs := []model.Run{
		{ID: "new", Status: model.StatusRunning, CreatedAt: model.NewTimestamp(now.Add(-time.Hour))},
		{ID: "old", Status: model.StatusCompleted, CreatedAt: model.NewTimestamp(now.Add(-48 * time.Hour))},
		{ID: "unknown", Status: model.StatusFailed},
	}
	recent := Apply(runs, RunsCreatedWithin(24*time.Hour, now))
	require.Len(t, recent, 2)
	assert.Equal(t, "new", recent[0].ID)
	assert.Equal(t, "unknown", recent[1].ID)

	finished := Apply(runs, And(RunStatusIn(model.StatusCompleted, model.StatusFailed), RunsCreatedWithin(24*time.Hour, now)))
	require.Len(t, finished, 1)
	assert.Equal(t, "unknown", finished[0].ID)
}

func TestParseFilters(t *testing.T) {
	m, err := ParseMedia("")
	require.NoError(t, err)
	assert.Equal(t, MediaAll, m)
	_, err = ParseMedia("audio")
	require.Error(t, err)

	d, err := ParseDate("week")
	require.NoError(t, err)
	assert.Equal(t, DateWeek, d)

	s, err := ParseStatus("failed_retryable")
	require.NoError(t, err)
	assert.Equal(t, StatusFailedRetryable, s)
}
