// Package normalize fills in the defaults and cross references a backend may omit,
// so that views always see complete entities. Every function is idempotent.
//
// Defaults:
//   - Task.RunID: the owning run's id when the payload has none.
//   - Task.MetadataURL: /tasks/{id}/metadata under the API base.
//   - Task.Retryable: false when null or absent (handled by decoding into bool).
//   - Segment.Asset: empty characters and props, nil scene.
package normalize

import (
	"cineflow/console/internal/locator"
	"cineflow/console/internal/model"
)

type Normalizer struct {
	resolver *locator.Resolver
}

func New(resolver *locator.Resolver) *Normalizer {
	return &Normalizer{resolver: resolver}
}

func MetadataPath(taskID string) string {
	return "/tasks/" + taskID + "/metadata"
}

func (n *Normalizer) Task(t model.Task, runID string) model.Task {
	if t.RunID == "" {
		t.RunID = runID
	}
	t.VideoURL = n.resolver.ResolvePtr(t.VideoURL)
	if t.MetadataURL == nil || *t.MetadataURL == "" {
		t.MetadataURL = model.StringPtr(MetadataPath(t.ID))
	}
	t.MetadataURL = n.resolver.ResolvePtr(t.MetadataURL)
	return t
}

func (n *Normalizer) Tasks(tasks []model.Task, runID string) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = n.Task(t, runID)
	}
	return out
}

func (n *Normalizer) Segment(s model.Segment) model.Segment {
	s.ImageURL = n.resolver.ResolvePtr(s.ImageURL)
	asset := Asset(s.Asset)
	s.Asset = &asset
	return s
}

func (n *Normalizer) Segments(segments []model.Segment) []model.Segment {
	out := make([]model.Segment, len(segments))
	for i, s := range segments {
		out[i] = n.Segment(s)
	}
	return out
}

// Asset returns a copy of a with non-nil slices. A nil asset becomes the empty asset.
func Asset(a *model.Asset) model.Asset {
	if a == nil {
		return model.Asset{Characters: []model.Character{}, Props: []string{}}
	}
	out := model.Asset{
		Characters: append([]model.Character{}, a.Characters...),
		Scene:      a.Scene,
		Props:      append([]string{}, a.Props...),
	}
	return out
}

// WithRunCreatedAt stamps tasks lacking created_at with the run's creation time.
func WithRunCreatedAt(tasks []model.Task, run model.Run) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		if t.CreatedAt == nil && !run.CreatedAt.IsZero() {
			ts := run.CreatedAt
			t.CreatedAt = &ts
		}
		out[i] = t
	}
	return out
}
