package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cineflow/console/internal/auth"
	"cineflow/console/internal/client"
	"cineflow/console/internal/job"
	"cineflow/console/internal/model"
	"cineflow/console/internal/provider"
	"cineflow/console/internal/store"
	"cineflow/console/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "cf-test-key"

const storyboardJSON = `{"segments":[
	{"prompt_text":"harbor at dawn","duration_seconds":10,"resolution":"horizontal"},
	{"prompt_text":"pier walk","duration_seconds":15,"resolution":"vertical"}
]}`

type testEnv struct {
	srv    *httptest.Server
	store  *store.MemoryStore
	client *client.Client
	token  string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.NewMemoryStore()
	authSvc := auth.NewService(st, "test-secret", 15*time.Minute)
	if err := authSvc.SeedAPIKey("test", testAPIKey); err != nil {
		t.Fatalf("seed api key: %v", err)
	}
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	jobs := job.NewService(st, provider.NewMockGenerator(0, 0, 1), nil, metrics, job.Options{Seed: 1})
	t.Cleanup(jobs.Close)

	srv := httptest.NewServer(NewServer(authSvc, st, jobs, nil, metrics, reg).Router())
	t.Cleanup(srv.Close)

	env := &testEnv{srv: srv, store: st}
	env.client = client.New(client.Options{
		BaseURL: srv.URL + "/api/v1",
		Token:   func() string { return env.token },
	})
	tok, err := env.client.ExchangeAPIKey(context.Background(), testAPIKey)
	if err != nil {
		t.Fatalf("exchange api key: %v", err)
	}
	env.token = tok.AccessToken
	return env
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+e.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) waitRun(t *testing.T, runID string, want model.Status) model.Run {
	t.Helper()
	var run model.Run
	require.Eventually(t, func() bool {
		got, err := e.client.GetRun(context.Background(), runID)
		require.NoError(t, err)
		run = got
		return got.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return run
}

func TestTokenRequired(t *testing.T) {
	env := setupTestServer(t)

	resp, err := http.Get(env.srv.URL + "/api/v1/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body struct {
		Error APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unauthorized", body.Error.Code)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))

	_, err = env.client.ExchangeAPIKey(context.Background(), "wrong")
	require.True(t, client.IsStatus(err, http.StatusUnauthorized))
}

func TestUploadRunAndDownload(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	sb, err := env.client.UploadStoryboard(ctx, "pilot.json", strings.NewReader(storyboardJSON))
	require.NoError(t, err)
	assert.Equal(t, "pilot.json", sb.Name)
	assert.Equal(t, 2, sb.SegmentCount)

	segs, err := env.client.ListSegments(ctx, sb.ID)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, 1, segs[0].SegmentIndex)

	run, err := env.client.CreateRun(ctx, model.RunCreateRequest{StoryboardID: sb.ID, ModelID: "sora2", GenCount: 2, Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, run.TotalTasks)

	done := env.waitRun(t, run.ID, model.StatusCompleted)
	assert.Equal(t, 4, done.Completed)

	tasks, err := env.client.ListRunTasks(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	for _, task := range tasks {
		require.Equal(t, model.StatusCompleted, task.Status)
		require.NotNil(t, task.VideoURL)
		assert.Equal(t, env.srv.URL+"/api/v1/tasks/"+task.ID+"/download", *task.VideoURL)
	}

	meta, err := env.client.TaskMetadata(ctx, tasks[0])
	require.NoError(t, err)
	assert.Equal(t, "sora_hk", meta["provider_id"])
	assert.Equal(t, run.ID, meta["run_id"])

	resp := env.get(t, "/api/v1/tasks/"+tasks[0].ID+"/download")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	clip, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.HasPrefix(string(clip), "MOCK-MP4"))

	runs, err := env.client.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	require.NoError(t, env.client.DeleteRun(ctx, run.ID))
	_, err = env.client.GetRun(ctx, run.ID)
	require.True(t, client.IsNotFound(err))
}

func TestUploadRejectsInvalidJSON(t *testing.T) {
	env := setupTestServer(t)
	_, err := env.client.UploadStoryboard(context.Background(), "bad.json", strings.NewReader("{nope"))
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "schema_error", apiErr.Code)
}

func TestCreateRunErrors(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	sb, err := env.client.UploadStoryboard(ctx, "pilot.json", strings.NewReader(storyboardJSON))
	require.NoError(t, err)

	_, err = env.client.CreateRun(ctx, model.RunCreateRequest{StoryboardID: "missing", ModelID: "sora2", GenCount: 1, Concurrency: 1})
	require.True(t, client.IsNotFound(err))

	var apiErr *client.APIError
	_, err = env.client.CreateRun(ctx, model.RunCreateRequest{StoryboardID: sb.ID, ModelID: "veo", GenCount: 1, Concurrency: 1})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid model_id", apiErr.Message)
	assert.Equal(t, "validation_error", apiErr.Code)

	_, err = env.client.CreateRun(ctx, model.RunCreateRequest{StoryboardID: sb.ID, ModelID: "sora2", GenCount: 1, Concurrency: 1, Range: "7-9"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "No valid segments in range", apiErr.Message)
}

func TestRetryTask(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	sb, err := env.client.UploadStoryboard(ctx, "pilot.json", strings.NewReader(storyboardJSON))
	require.NoError(t, err)
	run, err := env.client.CreateRun(ctx, model.RunCreateRequest{StoryboardID: sb.ID, ModelID: "sora2", GenCount: 1, Concurrency: 1, Range: "1"})
	require.NoError(t, err)
	env.waitRun(t, run.ID, model.StatusCompleted)

	tasks, err := env.client.ListRunTasks(ctx, run.ID)
	require.NoError(t, err)
	_, err = env.client.RetryTask(ctx, tasks[0].ID)
	require.True(t, client.IsStatus(err, http.StatusConflict))

	code := model.ErrTimeout
	_, err = env.store.UpdateTask(tasks[0].ID, func(r *store.TaskRecord) {
		r.Status = model.StatusFailed
		r.ErrorCode = &code
		r.Retryable = true
	})
	require.NoError(t, err)
	_, err = env.store.Recount(run.ID)
	require.NoError(t, err)

	failed := env.get(t, "/api/v1/runs/"+run.ID+"/tasks?status=failed&retryable=true")
	var page model.Page[model.Task]
	require.NoError(t, json.NewDecoder(failed.Body).Decode(&page))
	require.Equal(t, 1, page.Total)

	retried, err := env.client.RetryTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, retried.Status)
	env.waitRun(t, run.ID, model.StatusCompleted)
}

func TestListValidation(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	sb, err := env.client.UploadStoryboard(ctx, "pilot.json", strings.NewReader(storyboardJSON))
	require.NoError(t, err)

	resp := env.get(t, "/api/v1/storyboards?sort=bogus")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = env.get(t, "/api/v1/storyboards?page=x")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.get(t, "/api/v1/storyboards/"+sb.ID+"/segments?is_pro=false&resolution=vertical")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page model.Page[model.Segment]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, 2, page.Items[0].SegmentIndex)
}

func TestAdminToggles(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	p, err := env.client.SetProviderEnabled(ctx, "openai", true)
	require.NoError(t, err)
	assert.True(t, p.Enabled)

	m, err := env.client.SetModelEnabled(ctx, "sora2pro", false)
	require.NoError(t, err)
	assert.False(t, m.Enabled)

	models, err := env.client.ListAdminModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 2)

	providers, err := env.client.ListProviders(ctx)
	require.NoError(t, err)
	require.Len(t, providers, 3)
	assert.Equal(t, "aihubmix", providers[0].ID)

	resp := env.get(t, "/api/v1/providers/sora_hk/capabilities")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStartImageUpload(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	sb, err := env.client.UploadStoryboard(ctx, "pilot.json", strings.NewReader(storyboardJSON))
	require.NoError(t, err)
	segs, err := env.client.ListSegments(ctx, sb.ID)
	require.NoError(t, err)

	url, err := env.client.UploadSegmentImage(ctx, segs[0].ID, "still.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, env.srv.URL+"/uploads/"+segs[0].ID+"_still.png", url)

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	segs, err = env.client.ListSegments(ctx, sb.ID)
	require.NoError(t, err)
	require.NotNil(t, segs[0].ImageURL)
	assert.Equal(t, url, *segs[0].ImageURL)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t)
	resp, err := http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "cineflow_http_requests_total")
}
