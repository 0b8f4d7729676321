package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"cineflow/console/internal/model"
	"cineflow/console/internal/normalize"
)

func (c *Client) ListStoryboards(ctx context.Context) ([]model.Storyboard, error) {
	return FetchAll[model.Storyboard](ctx, c, "/storyboards?sort=created_at&order=desc", 0)
}

func (c *Client) GetStoryboard(ctx context.Context, id string) (model.Storyboard, error) {
	var sb model.Storyboard
	err := c.requestJSON(ctx, http.MethodGet, "/storyboards/"+url.PathEscape(id), nil, &sb)
	return sb, err
}

func (c *Client) DeleteStoryboard(ctx context.Context, id string) error {
	return c.requestJSON(ctx, http.MethodDelete, "/storyboards/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListSegments(ctx context.Context, storyboardID string) ([]model.Segment, error) {
	path := "/storyboards/" + url.PathEscape(storyboardID) + "/segments?sort=segment_index&order=asc"
	segments, err := FetchAll[model.Segment](ctx, c, path, 0)
	if err != nil {
		return nil, err
	}
	return c.norm.Segments(segments), nil
}

func (c *Client) UpdateSegment(ctx context.Context, id string, patch model.SegmentPatch) (model.Segment, error) {
	var seg model.Segment
	if err := c.requestJSON(ctx, http.MethodPatch, "/segments/"+url.PathEscape(id), patch, &seg); err != nil {
		return model.Segment{}, err
	}
	return c.norm.Segment(seg), nil
}

func (c *Client) ListRuns(ctx context.Context) ([]model.Run, error) {
	return FetchAll[model.Run](ctx, c, "/runs?sort=created_at&order=desc", 0)
}

func (c *Client) GetRun(ctx context.Context, id string) (model.Run, error) {
	var run model.Run
	err := c.requestJSON(ctx, http.MethodGet, "/runs/"+url.PathEscape(id), nil, &run)
	return run, err
}

// CreateRun validates req locally before sending it. The returned run always carries
// the requested storyboard and model ids.
func (c *Client) CreateRun(ctx context.Context, req model.RunCreateRequest) (model.Run, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return model.Run{}, err
	}
	var run model.Run
	if err := c.requestJSON(ctx, http.MethodPost, "/runs", req, &run); err != nil {
		return model.Run{}, err
	}
	run.StoryboardID = req.StoryboardID
	run.ModelID = req.ModelID
	return run, nil
}

func (c *Client) DeleteRun(ctx context.Context, id string) error {
	return c.requestJSON(ctx, http.MethodDelete, "/runs/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListRunTasks(ctx context.Context, runID string) ([]model.Task, error) {
	path := "/runs/" + url.PathEscape(runID) + "/tasks?sort=segment_index&order=asc"
	tasks, err := FetchAll[model.Task](ctx, c, path, 0)
	if err != nil {
		return nil, err
	}
	return c.norm.Tasks(tasks, runID), nil
}

func (c *Client) GetTask(ctx context.Context, id string) (model.Task, error) {
	var task model.Task
	if err := c.requestJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return model.Task{}, err
	}
	return c.norm.Task(task, ""), nil
}

func (c *Client) RetryTask(ctx context.Context, id string) (model.Task, error) {
	var task model.Task
	if err := c.requestJSON(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/retry", nil, &task); err != nil {
		return model.Task{}, err
	}
	return c.norm.Task(task, ""), nil
}

// TaskMetadata downloads the JSON document behind the task's metadata locator.
func (c *Client) TaskMetadata(ctx context.Context, task model.Task) (map[string]any, error) {
	target := c.resolver.ResolvePtr(task.MetadataURL)
	if target == nil {
		target = c.resolver.ResolvePtr(model.StringPtr(normalize.MetadataPath(task.ID)))
	}
	if target == nil {
		return nil, errors.New("metadata_url is unavailable")
	}
	var doc map[string]any
	if err := c.requestJSON(ctx, http.MethodGet, *target, nil, &doc); err != nil {
		return nil, fmt.Errorf("download metadata for task %s: %w", task.ID, err)
	}
	return doc, nil
}

func (c *Client) ListModels(ctx context.Context) ([]model.Model, error) {
	return FetchAll[model.Model](ctx, c, "/models?sort=id&order=asc", 0)
}

func (c *Client) ListAdminModels(ctx context.Context) ([]model.Model, error) {
	return FetchAll[model.Model](ctx, c, "/admin/models?sort=id&order=asc", 0)
}

func (c *Client) SetModelEnabled(ctx context.Context, id string, enabled bool) (model.Model, error) {
	var m model.Model
	err := c.requestJSON(ctx, http.MethodPatch, "/admin/models/"+url.PathEscape(id), model.Toggle{Enabled: enabled}, &m)
	return m, err
}

func (c *Client) ListProviders(ctx context.Context) ([]model.Provider, error) {
	return FetchAll[model.Provider](ctx, c, "/admin/providers?sort=id&order=asc", 0)
}

func (c *Client) SetProviderEnabled(ctx context.Context, id string, enabled bool) (model.Provider, error) {
	var p model.Provider
	err := c.requestJSON(ctx, http.MethodPatch, "/admin/providers/"+url.PathEscape(id), model.Toggle{Enabled: enabled}, &p)
	return p, err
}

// ExchangeAPIKey trades an API key for a bearer token.
func (c *Client) ExchangeAPIKey(ctx context.Context, apiKey string) (model.AuthToken, error) {
	var tok model.AuthToken
	err := c.requestJSON(ctx, http.MethodPost, "/auth/token", map[string]string{"api_key": apiKey}, &tok)
	return tok, err
}
