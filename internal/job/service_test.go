package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cineflow/console/internal/model"
	"cineflow/console/internal/provider"
	"cineflow/console/internal/store"
	"cineflow/console/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type scriptedGenerator struct {
	calls    atomic.Int32
	failures []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, in provider.GenerateInput) (provider.GenerateOutput, *provider.Error) {
	n := int(g.calls.Add(1)) - 1
	if n < len(g.failures) && g.failures[n] != "" {
		return provider.GenerateOutput{}, &provider.Error{Message: g.failures[n]}
	}
	return provider.GenerateOutput{FullPrompt: in.Segment.PromptText, Video: []byte("clip"), ContentType: "video/mp4"}, nil
}

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, in provider.GenerateInput) (provider.GenerateOutput, *provider.Error) {
	<-ctx.Done()
	return provider.GenerateOutput{}, &provider.Error{Message: "request canceled"}
}

func setupStoryboard(t *testing.T, st *store.MemoryStore, count int) model.Storyboard {
	t.Helper()
	segs := make([]model.Segment, count)
	for i := range segs {
		segs[i] = model.Segment{PromptText: "shot", DurationSeconds: 10, Resolution: model.ResolutionHorizontal}
	}
	sb, err := st.CreateStoryboard("test", segs)
	if err != nil {
		t.Fatalf("create storyboard: %v", err)
	}
	return sb
}

func runRequest(sbID string) model.RunCreateRequest {
	return model.RunCreateRequest{StoryboardID: sbID, ModelID: "sora2", GenCount: 1, Concurrency: 2}
}

func waitRun(t *testing.T, st *store.MemoryStore, runID string, want model.Status) model.Run {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := st.GetRun(runID)
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if run.Status == want {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s did not reach %s", runID, want)
	return model.Run{}
}

func TestRunCompletes(t *testing.T) {
	st := store.NewMemoryStore()
	metrics := telemetry.NewIsolatedMetrics()
	svc := NewService(st, &scriptedGenerator{}, nil, metrics, Options{Seed: 1})
	defer svc.Close()
	sb := setupStoryboard(t, st, 3)

	run, err := svc.CreateRun(context.Background(), runRequest(sb.ID))
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	got := waitRun(t, st, run.ID, model.StatusCompleted)
	if got.Completed != 3 {
		t.Fatalf("completed = %d, want 3", got.Completed)
	}
	svc.Wait()

	tasks, _ := st.TaskRecords(run.ID)
	for _, task := range tasks {
		if task.VideoURL == nil || *task.VideoURL != "/api/v1/tasks/"+task.ID+"/download" {
			t.Fatalf("unexpected video url %v", task.VideoURL)
		}
		if task.ProviderID != "sora_hk" {
			t.Fatalf("provider = %q, want sora_hk", task.ProviderID)
		}
		if _, err := st.GetUpload(VideoUploadName(task.ID)); err != nil {
			t.Fatalf("video upload missing: %v", err)
		}
	}
	if v := testutil.ToFloat64(metrics.TaskTransitions.WithLabelValues("completed")); v != 3 {
		t.Fatalf("completed transitions = %v, want 3", v)
	}
	if svc.ActiveRuns() != 0 {
		t.Fatalf("runner still active")
	}
}

func TestFailureIsClassifiedAndRetried(t *testing.T) {
	st := store.NewMemoryStore()
	gen := &scriptedGenerator{failures: []string{"Request timed out"}}
	svc := NewService(st, gen, nil, nil, Options{Seed: 1})
	defer svc.Close()
	sb := setupStoryboard(t, st, 1)

	run, err := svc.CreateRun(context.Background(), runRequest(sb.ID))
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	waitRun(t, st, run.ID, model.StatusFailed)
	svc.Wait()

	tasks, _ := st.TaskRecords(run.ID)
	task := tasks[0]
	if task.ErrorCode == nil || *task.ErrorCode != model.ErrTimeout || !task.Retryable {
		t.Fatalf("unexpected failure fields: %+v", task.Task)
	}

	retried, err := svc.RetryTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Status != model.StatusQueued || retried.ErrorCode != nil {
		t.Fatalf("retry did not reset task: %+v", retried)
	}
	waitRun(t, st, run.ID, model.StatusCompleted)
}

func TestRetryRejectsActiveTask(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st, blockingGenerator{}, nil, nil, Options{Seed: 1})
	sb := setupStoryboard(t, st, 1)

	run, err := svc.CreateRun(context.Background(), runRequest(sb.ID))
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	tasks, _ := st.TaskRecords(run.ID)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if task, _ := st.GetTask(tasks[0].ID); task.Status == model.StatusRunning {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := svc.RetryTask(context.Background(), tasks[0].ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	svc.Close()
	got, _ := st.GetRun(run.ID)
	if !got.Status.Final() {
		t.Fatalf("run still %s after close", got.Status)
	}
}

func TestFailoverTriesNextProvider(t *testing.T) {
	st := store.NewMemoryStore()
	on := true
	if _, err := st.UpdateProvider("openai", store.ProviderUpdate{Enabled: &on, SupportedDurations: []int{10}}); err != nil {
		t.Fatalf("enable provider: %v", err)
	}
	gen := &scriptedGenerator{failures: []string{"503 service unavailable"}}
	svc := NewService(st, gen, nil, nil, Options{Seed: 1})
	defer svc.Close()
	sb := setupStoryboard(t, st, 1)

	req := runRequest(sb.ID)
	req.RoutingStrategy = model.RoutingFailover
	run, err := svc.CreateRun(context.Background(), req)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	waitRun(t, st, run.ID, model.StatusCompleted)
	svc.Wait()

	tasks, _ := st.TaskRecords(run.ID)
	if tasks[0].ProviderID != "openai" {
		t.Fatalf("provider = %q, want openai", tasks[0].ProviderID)
	}
	if gen.calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", gen.calls.Load())
	}
}

func TestNoProvider(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st, &scriptedGenerator{}, nil, nil, Options{Seed: 1})
	defer svc.Close()
	sb, err := st.CreateStoryboard("test", []model.Segment{{PromptText: "x", DurationSeconds: 4, Resolution: model.ResolutionVertical}})
	if err != nil {
		t.Fatalf("create storyboard: %v", err)
	}

	run, err := svc.CreateRun(context.Background(), runRequest(sb.ID))
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	waitRun(t, st, run.ID, model.StatusFailed)
	tasks, _ := st.TaskRecords(run.ID)
	if tasks[0].ErrorCode == nil || *tasks[0].ErrorCode != model.ErrNoProvider || tasks[0].Retryable {
		t.Fatalf("unexpected task: %+v", tasks[0].Task)
	}
}

func TestDryRunSkipsProvider(t *testing.T) {
	st := store.NewMemoryStore()
	gen := &scriptedGenerator{}
	svc := NewService(st, gen, nil, nil, Options{Seed: 1})
	defer svc.Close()
	sb := setupStoryboard(t, st, 2)

	req := runRequest(sb.ID)
	req.DryRun = true
	run, err := svc.CreateRun(context.Background(), req)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	waitRun(t, st, run.ID, model.StatusCompleted)
	if gen.calls.Load() != 0 {
		t.Fatalf("dry run called the provider")
	}
}

func TestActiveRunLimit(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st, blockingGenerator{}, nil, nil, Options{MaxActiveRuns: 1, Seed: 1})
	defer svc.Close()
	sb := setupStoryboard(t, st, 1)

	if _, err := svc.CreateRun(context.Background(), runRequest(sb.ID)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := svc.CreateRun(context.Background(), runRequest(sb.ID)); !errors.Is(err, ErrTooManyActiveRuns) {
		t.Fatalf("expected ErrTooManyActiveRuns, got %v", err)
	}
}
