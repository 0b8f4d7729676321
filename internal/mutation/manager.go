// Package mutation layers provisional task state, produced by accepted user actions,
// over the last authoritative snapshot until a later snapshot supersedes it.
package mutation

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"cineflow/console/internal/model"
	"cineflow/console/internal/telemetry"
)

var (
	ErrInFlight     = errors.New("retry already in flight")
	ErrNotRetryable = errors.New("task is not retryable")
)

// RetryFunc asks the backend to retry one task.
type RetryFunc func(ctx context.Context, taskID string) error

type entry struct {
	task model.Task
	// gen is the newest fetch generation issued when the retry was accepted. Only a
	// snapshot from a later generation can have observed the retry.
	gen uint64
}

type Manager struct {
	retry  RetryFunc
	logger *slog.Logger

	mu       sync.Mutex
	gen      uint64
	applied  uint64
	snapshot []model.Task
	overlay  map[string]entry
	pending  map[string]struct{}
}

func New(retry RetryFunc, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = telemetry.Discard()
	}
	return &Manager{
		retry:   retry,
		logger:  logger,
		overlay: map[string]entry{},
		pending: map[string]struct{}{},
	}
}

// BeginFetch returns the generation token for a fetch that is about to start.
func (m *Manager) BeginFetch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	return m.gen
}

// ApplySnapshot replaces the authoritative layer with the result of the fetch
// identified by gen. Overlay entries accepted before that fetch began, and whose task
// is present in the snapshot, are dropped. Snapshots older than the last applied one
// are ignored and ApplySnapshot reports false.
func (m *Manager) ApplySnapshot(gen uint64, tasks []model.Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen < m.applied {
		return false
	}
	m.applied = gen
	m.snapshot = append([]model.Task(nil), tasks...)
	for _, t := range tasks {
		if e, ok := m.overlay[t.ID]; ok && gen > e.gen {
			delete(m.overlay, t.ID)
		}
	}
	return true
}

// Tasks returns the merged view in snapshot order, provisional entries winning.
func (m *Manager) Tasks() []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Task, len(m.snapshot))
	for i, t := range m.snapshot {
		if e, ok := m.overlay[t.ID]; ok {
			t = e.task
		}
		out[i] = t
	}
	return out
}

// Retry submits a retry for taskID. On success the task shows as queued with its
// error cleared until a newer snapshot arrives; on failure nothing changes and the
// backend error is returned.
func (m *Manager) Retry(ctx context.Context, taskID string) error {
	m.mu.Lock()
	if _, busy := m.pending[taskID]; busy {
		m.mu.Unlock()
		return ErrInFlight
	}
	current, known := m.findLocked(taskID)
	if known && !current.CanRetry() {
		m.mu.Unlock()
		return ErrNotRetryable
	}
	m.pending[taskID] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, taskID)
		m.mu.Unlock()
	}()

	if err := m.retry(ctx, taskID); err != nil {
		m.logger.Warn("task_retry_failed", "task_id", taskID, "error", err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	base, ok := m.findLocked(taskID)
	if !ok {
		base = model.Task{ID: taskID}
	}
	m.overlay[taskID] = entry{task: Provisional(base), gen: m.gen}
	m.logger.Info("task_retry_accepted", "task_id", taskID, "run_id", base.RunID)
	return nil
}

func (m *Manager) Pending(taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[taskID]
	return ok
}

func (m *Manager) PendingIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsProvisional reports whether taskID currently shows overlay state.
func (m *Manager) IsProvisional(taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.overlay[taskID]
	return ok
}

func (m *Manager) findLocked(taskID string) (model.Task, bool) {
	if e, ok := m.overlay[taskID]; ok {
		return e.task, true
	}
	for _, t := range m.snapshot {
		if t.ID == taskID {
			return t, true
		}
	}
	return model.Task{}, false
}

// Provisional is the state a task is shown in once the backend accepted its retry.
func Provisional(t model.Task) model.Task {
	t.Status = model.StatusQueued
	t.ErrorCode = nil
	t.ErrorMsg = nil
	t.Retryable = false
	return t
}
