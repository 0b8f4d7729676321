package normalize

import (
	"testing"
	"time"

	"cineflow/console/internal/locator"
	"cineflow/console/internal/model"

	"github.com/stretchr/testify/require"
)

func newNormalizer() *Normalizer {
	return New(locator.NewResolver("http://api.local/api/v1"))
}

func TestTaskDefaults(t *testing.T) {
	n := newNormalizer()
	got := n.Task(model.Task{ID: "t1", Status: model.StatusQueued}, "run_1")

	require.Equal(t, "run_1", got.RunID)
	require.Nil(t, got.VideoURL)
	require.Equal(t, "http://api.local/api/v1/tasks/t1/metadata", *got.MetadataURL)
	require.False(t, got.Retryable)
}

func TestTaskKeepsOwnRunAndResolvesVideo(t *testing.T) {
	n := newNormalizer()
	got := n.Task(model.Task{
		ID:          "t1",
		RunID:       "run_a",
		VideoURL:    model.StringPtr("/uploads/videos/t1.mp4"),
		MetadataURL: model.StringPtr("/api/v1/tasks/t1/metadata"),
	}, "run_b")

	require.Equal(t, "run_a", got.RunID)
	require.Equal(t, "http://api.local/uploads/videos/t1.mp4", *got.VideoURL)
	require.Equal(t, "http://api.local/api/v1/tasks/t1/metadata", *got.MetadataURL)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := newNormalizer()
	task := n.Task(model.Task{ID: "t1", VideoURL: model.StringPtr("v.mp4")}, "run_1")
	require.Equal(t, task, n.Task(task, "run_1"))

	seg := n.Segment(model.Segment{ID: "s1", ImageURL: model.StringPtr("/uploads/s1.png")})
	require.Equal(t, seg, n.Segment(seg))
}

func TestSegmentAssetDefaults(t *testing.T) {
	n := newNormalizer()
	got := n.Segment(model.Segment{ID: "s1"})

	require.NotNil(t, got.Asset)
	require.NotNil(t, got.Asset.Characters)
	require.NotNil(t, got.Asset.Props)
	require.Nil(t, got.Asset.Scene)
	require.Nil(t, got.DirectorIntent)
	require.Nil(t, got.ImageURL)
}

func TestWithRunCreatedAt(t *testing.T) {
	created := model.NewTimestamp(time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC))
	own := model.NewTimestamp(created.Add(time.Hour))
	tasks := []model.Task{{ID: "a"}, {ID: "b", CreatedAt: &own}}

	got := WithRunCreatedAt(tasks, model.Run{ID: "r", CreatedAt: created})
	require.True(t, got[0].CreatedAt.Equal(created.Time))
	require.True(t, got[1].CreatedAt.Equal(own.Time))
	require.Nil(t, tasks[0].CreatedAt)
}
