package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"cineflow/console/internal/model"
	"cineflow/console/internal/provider"
	"cineflow/console/internal/store"
	"cineflow/console/internal/telemetry"
)

var ErrTooManyActiveRuns = errors.New("too many active runs")

// VideoUploadName is the upload key a completed task's clip is stored under.
func VideoUploadName(taskID string) string {
	return "videos/" + taskID + ".mp4"
}

type Options struct {
	MaxConcurrency   int
	MaxActiveRuns    int
	DownloadFailRate float64
	Seed             int64
}

// Service executes runs against a provider.Generator. Each active run owns one
// runner goroutine; tasks share a process-wide concurrency cap on top of the
// run's own limit.
type Service struct {
	store   *store.MemoryStore
	gen     provider.Generator
	log     *slog.Logger
	metrics *telemetry.Metrics

	maxActiveRuns    int
	downloadFailRate float64
	globalSem        chan struct{}

	rngMu sync.Mutex
	rng   *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	activeRunner map[string]bool
}

func NewService(st *store.MemoryStore, gen provider.Generator, logger *slog.Logger, metrics *telemetry.Metrics, opts Options) *Service {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 50
	}
	if opts.MaxActiveRuns < 1 {
		opts.MaxActiveRuns = 8
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = telemetry.Discard()
	}
	if metrics == nil {
		metrics = telemetry.NewIsolatedMetrics()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:            st,
		gen:              gen,
		log:              logger,
		metrics:          metrics,
		maxActiveRuns:    opts.MaxActiveRuns,
		downloadFailRate: opts.DownloadFailRate,
		globalSem:        make(chan struct{}, opts.MaxConcurrency),
		rng:              rand.New(rand.NewSource(opts.Seed)),
		ctx:              ctx,
		cancel:           cancel,
		activeRunner:     map[string]bool{},
	}
}

// CreateRun stores the run and starts executing it.
func (s *Service) CreateRun(ctx context.Context, req model.RunCreateRequest) (model.Run, error) {
	if err := ctx.Err(); err != nil {
		return model.Run{}, err
	}
	if s.ActiveRuns() >= s.maxActiveRuns {
		return model.Run{}, ErrTooManyActiveRuns
	}
	run, err := s.store.CreateRun(req)
	if err != nil {
		return model.Run{}, err
	}
	s.log.Info("run_created", "run_id", run.ID, "tasks", run.TotalTasks, "model_id", run.ModelID)
	s.startRunnerIfNeeded(run.ID)
	return run, nil
}

// RetryTask requeues a failed task and makes sure its run has a runner.
func (s *Service) RetryTask(ctx context.Context, taskID string) (model.Task, error) {
	if err := ctx.Err(); err != nil {
		return model.Task{}, err
	}
	rec, err := s.store.RetryTask(taskID)
	if err != nil {
		return model.Task{}, err
	}
	s.metrics.TaskTransitions.WithLabelValues(string(model.StatusQueued)).Inc()
	if _, err := s.store.Recount(rec.RunID); err != nil {
		return model.Task{}, err
	}
	s.log.Info("task_retry_queued", "task_id", taskID, "run_id", rec.RunID)
	s.startRunnerIfNeeded(rec.RunID)
	return rec.Task, nil
}

func (s *Service) ActiveRuns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeRunner)
}

// Close stops every runner and waits for them to exit. Tasks interrupted mid-flight
// fail with a retryable timeout.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until no runner is active. Intended for tests and dry runs.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) startRunnerIfNeeded(runID string) {
	s.mu.Lock()
	if s.activeRunner[runID] {
		s.mu.Unlock()
		return
	}
	s.activeRunner[runID] = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runRun(runID)
}

// finishRunner releases the run unless a retry queued more work after the runner's
// last scan.
func (s *Service) finishRunner(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() == nil && len(s.store.QueuedTasks(runID)) > 0 {
		return false
	}
	delete(s.activeRunner, runID)
	return true
}

func (s *Service) runRun(runID string) {
	defer s.wg.Done()

	cfg, err := s.store.RunConfig(runID)
	if err != nil {
		s.finishRunner(runID)
		return
	}
	runSem := make(chan struct{}, max(cfg.Concurrency, 1))

	for {
		ids := s.store.QueuedTasks(runID)
		if len(ids) == 0 || s.ctx.Err() != nil {
			run, err := s.store.Recount(runID)
			if err != nil {
				s.finishRunner(runID)
				return
			}
			if s.finishRunner(runID) {
				s.log.Info("run_settled", "run_id", runID, "status", run.Status,
					"completed", run.Completed, "failed", run.Failed, "download_failed", run.DownloadFailed)
				return
			}
			continue
		}

		var wg sync.WaitGroup
		wg.Add(len(ids))
		for _, id := range ids {
			id := id
			go func() {
				defer wg.Done()
				runSem <- struct{}{}
				defer func() { <-runSem }()
				s.globalSem <- struct{}{}
				defer func() { <-s.globalSem }()
				s.executeTask(cfg, id)
			}()
		}
		wg.Wait()
		_, _ = s.store.Recount(runID)
	}
}

func (s *Service) executeTask(cfg model.RunCreateRequest, taskID string) {
	rec, ok := s.store.ClaimTask(taskID, "")
	if !ok {
		return
	}
	s.transition(model.StatusRunning)
	log := s.log.With("task_id", taskID, "run_id", rec.RunID, "segment_index", rec.SegmentIndex)

	if err := s.ctx.Err(); err != nil {
		s.fail(log, taskID, model.ErrTimeout, "executor stopped before the task ran", true)
		return
	}
	seg, err := s.store.GetSegment(rec.SegmentID)
	if err != nil {
		s.fail(log, taskID, model.ErrValidation, "segment no longer exists", false)
		return
	}
	if cfg.DryRun {
		s.complete(log, taskID, provider.FullPrompt(seg), nil, "")
		return
	}

	s.rngMu.Lock()
	candidates, err := provider.Route(s.store, cfg.ModelID, cfg.RoutingStrategy, provider.RequirementFor(seg), s.rng)
	s.rngMu.Unlock()
	if err != nil {
		s.fail(log, taskID, model.ErrNoProvider, err.Error(), false)
		return
	}

	for i, cand := range candidates {
		_, _ = s.store.UpdateTask(taskID, func(r *store.TaskRecord) { r.ProviderID = cand.ProviderID })
		out, pErr := s.gen.Generate(s.ctx, provider.GenerateInput{
			TaskID:          taskID,
			RunID:           rec.RunID,
			ProviderID:      cand.ProviderID,
			ProviderModelID: cand.ProviderModelID,
			Segment:         seg,
			VersionIndex:    rec.VersionIndex,
		})
		if pErr == nil {
			if s.roll(s.downloadFailRate) {
				s.downloadFailed(log, taskID, out.FullPrompt)
				return
			}
			s.complete(log, taskID, out.FullPrompt, out.Video, out.ContentType)
			return
		}
		if s.ctx.Err() != nil {
			s.fail(log, taskID, model.ErrTimeout, "executor stopped while the task was running", true)
			return
		}
		code, retryable := provider.ClassifyError(pErr.Message)
		if cfg.RoutingStrategy == model.RoutingFailover && retryable && i < len(candidates)-1 {
			log.Warn("provider_failover", "provider_id", cand.ProviderID, "error_code", code, "error", pErr.Message)
			continue
		}
		s.fail(log.With("provider_id", cand.ProviderID), taskID, code, pErr.Message, retryable)
		return
	}
}

func (s *Service) complete(log *slog.Logger, taskID, fullPrompt string, video []byte, contentType string) {
	var videoURL *string
	if video != nil {
		s.store.SaveUpload(store.Upload{Name: VideoUploadName(taskID), ContentType: contentType, Data: video})
		videoURL = model.StringPtr(fmt.Sprintf("/api/v1/tasks/%s/download", taskID))
	}
	_, _ = s.store.UpdateTask(taskID, func(r *store.TaskRecord) {
		r.Status = model.StatusCompleted
		r.VideoURL = videoURL
		r.FullPrompt = model.StringPtr(fullPrompt)
		r.ErrorCode = nil
		r.ErrorMsg = nil
		r.Retryable = false
	})
	s.transition(model.StatusCompleted)
	log.Debug("task_completed")
}

func (s *Service) downloadFailed(log *slog.Logger, taskID, fullPrompt string) {
	code := model.ErrDownloadFailed
	_, _ = s.store.UpdateTask(taskID, func(r *store.TaskRecord) {
		r.Status = model.StatusDownloadFailed
		r.FullPrompt = model.StringPtr(fullPrompt)
		r.ErrorCode = &code
		r.ErrorMsg = model.StringPtr("generated video could not be downloaded")
		r.Retryable = false
	})
	s.transition(model.StatusDownloadFailed)
	log.Warn("task_download_failed")
}

func (s *Service) fail(log *slog.Logger, taskID string, code model.TaskErrorCode, msg string, retryable bool) {
	_, _ = s.store.UpdateTask(taskID, func(r *store.TaskRecord) {
		r.Status = model.StatusFailed
		r.ErrorCode = &code
		r.ErrorMsg = model.StringPtr(msg)
		r.Retryable = retryable
	})
	s.transition(model.StatusFailed)
	log.Warn("task_failed", "error_code", code, "retryable", retryable, "error", msg)
}

func (s *Service) transition(status model.Status) {
	s.metrics.TaskTransitions.WithLabelValues(string(status)).Inc()
}

func (s *Service) roll(p float64) bool {
	if p <= 0 {
		return false
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64() < p
}
