package store

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"cineflow/console/internal/model"

	"github.com/google/uuid"
)

var runSortKeys = sortKeys[model.Run]{
	"id":          func(a, b model.Run) int { return compareStr(a.ID, b.ID) },
	"status":      func(a, b model.Run) int { return compareStr(string(a.Status), string(b.Status)) },
	"created_at":  func(a, b model.Run) int { return compareTime(a.CreatedAt.Time, b.CreatedAt.Time) },
	"total_tasks": func(a, b model.Run) int { return a.TotalTasks - b.TotalTasks },
}

var taskSortKeys = sortKeys[model.Task]{
	"id":            func(a, b model.Task) int { return compareStr(a.ID, b.ID) },
	"status":        func(a, b model.Task) int { return compareStr(string(a.Status), string(b.Status)) },
	"segment_index": func(a, b model.Task) int { return a.SegmentIndex - b.SegmentIndex },
	"created_at": func(a, b model.Task) int {
		if a.CreatedAt == nil || b.CreatedAt == nil {
			return compareBool(a.CreatedAt != nil, b.CreatedAt != nil)
		}
		return compareTime(a.CreatedAt.Time, b.CreatedAt.Time)
	},
}

// TaskFilter narrows ListTasks. Zero values match everything.
type TaskFilter struct {
	Status       model.Status
	SegmentIndex *int
	ErrorCode    model.TaskErrorCode
	Retryable    *bool
}

func (f TaskFilter) match(t model.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.SegmentIndex != nil && t.SegmentIndex != *f.SegmentIndex {
		return false
	}
	if f.ErrorCode != "" && (t.ErrorCode == nil || *t.ErrorCode != f.ErrorCode) {
		return false
	}
	if f.Retryable != nil && t.Retryable != *f.Retryable {
		return false
	}
	return true
}

// CreateRun validates req against the stored storyboard and catalog, then creates
// gen_count queued tasks for every selected segment.
func (s *MemoryStore) CreateRun(req model.RunCreateRequest) (model.Run, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return model.Run{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sb, ok := s.storyboards[req.StoryboardID]
	if !ok {
		return model.Run{}, fmt.Errorf("storyboard %s: %w", req.StoryboardID, ErrNotFound)
	}
	m, ok := s.models[req.ModelID]
	if !ok || !m.Enabled {
		return model.Run{}, fmt.Errorf("%w: Invalid model_id", ErrBadRequest)
	}

	segments := make([]*segmentRecord, 0, len(sb.segmentIDs))
	indices := make([]int, 0, len(sb.segmentIDs))
	for _, id := range sb.segmentIDs {
		if seg, ok := s.segments[id]; ok {
			segments = append(segments, seg)
			indices = append(indices, seg.SegmentIndex)
		}
	}
	selected, err := model.ParseRange(req.Range, indices)
	if err != nil {
		return model.Run{}, fmt.Errorf("%w: No valid segments in range", ErrBadRequest)
	}
	slices.SortFunc(segments, func(a, b *segmentRecord) int { return a.SegmentIndex - b.SegmentIndex })

	now := model.NewTimestamp(s.now().UTC())
	run := &runRecord{
		Run: model.Run{
			ID:             uuid.NewString(),
			StoryboardID:   sb.ID,
			StoryboardName: sb.Name,
			ModelID:        req.ModelID,
			Status:         model.StatusRunning,
			CreatedAt:      now,
		},
		seq:    s.nextSeq(),
		config: req,
	}
	for _, seg := range segments {
		if !slices.Contains(selected, seg.SegmentIndex) {
			continue
		}
		for version := 1; version <= req.GenCount; version++ {
			id := uuid.NewString()
			created := now
			s.tasks[id] = &TaskRecord{
				Task: model.Task{
					ID:           id,
					RunID:        run.ID,
					Status:       model.StatusQueued,
					MetadataURL:  model.StringPtr("/api/v1/tasks/" + id + "/metadata"),
					SegmentIndex: seg.SegmentIndex,
					CreatedAt:    &created,
				},
				SegmentID:    seg.ID,
				VersionIndex: version,
				seq:          s.nextSeq(),
			}
			run.TotalTasks++
		}
	}
	s.runs[run.ID] = run
	return run.Run, nil
}

func (s *MemoryStore) ListRuns(q ListQuery, status model.Status) ([]model.Run, int, ListQuery, error) {
	s.mu.RLock()
	recs := make([]*runRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		if status != "" && rec.Status != status {
			continue
		}
		recs = append(recs, rec)
	}
	slices.SortFunc(recs, func(a, b *runRecord) int { return cmp.Compare(b.seq, a.seq) })
	items := make([]model.Run, len(recs))
	for i, rec := range recs {
		items[i] = rec.Run
	}
	s.mu.RUnlock()
	return sortAndPage(items, runSortKeys, q)
}

func (s *MemoryStore) GetRun(id string) (model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return rec.Run, nil
}

// RunConfig returns the request a run was created from.
func (s *MemoryStore) RunConfig(id string) (model.RunCreateRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	if !ok {
		return model.RunCreateRequest{}, ErrNotFound
	}
	return rec.config, nil
}

// DeleteRun removes a finished run and its tasks.
func (s *MemoryStore) DeleteRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	if !rec.Status.Final() {
		return fmt.Errorf("%w: run %s is still %s", ErrConflict, id, rec.Status)
	}
	s.deleteRunLocked(id)
	return nil
}

func (s *MemoryStore) deleteRunLocked(id string) {
	for taskID, task := range s.tasks {
		if task.RunID == id {
			delete(s.tasks, taskID)
		}
	}
	delete(s.runs, id)
}

// Recount derives a run's counters and status from its tasks. Any queued or running
// task keeps the run running; otherwise a single failure marks it failed.
func (s *MemoryStore) Recount(runID string) (model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[runID]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	var total, completed, failed, downloadFailed int
	active := false
	for _, task := range s.tasks {
		if task.RunID != runID {
			continue
		}
		total++
		switch task.Status {
		case model.StatusCompleted:
			completed++
		case model.StatusFailed:
			failed++
		case model.StatusDownloadFailed:
			downloadFailed++
		default:
			active = true
		}
	}
	rec.TotalTasks = total
	rec.Completed = completed
	rec.Failed = failed
	rec.DownloadFailed = downloadFailed
	switch {
	case active:
		rec.Status = model.StatusRunning
	case failed > 0 || downloadFailed > 0:
		rec.Status = model.StatusFailed
	default:
		rec.Status = model.StatusCompleted
	}
	return rec.Run, nil
}

// TaskRecords returns a run's task records ordered by segment and version.
func (s *MemoryStore) TaskRecords(runID string) ([]TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.runs[runID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]TaskRecord, 0)
	for _, task := range s.tasks {
		if task.RunID == runID {
			out = append(out, *task)
		}
	}
	slices.SortFunc(out, func(a, b TaskRecord) int {
		if c := cmp.Compare(a.SegmentIndex, b.SegmentIndex); c != 0 {
			return c
		}
		return cmp.Compare(a.VersionIndex, b.VersionIndex)
	})
	return out, nil
}

func (s *MemoryStore) ListTasks(runID string, f TaskFilter, q ListQuery) ([]model.Task, int, ListQuery, error) {
	recs, err := s.TaskRecords(runID)
	if err != nil {
		return nil, 0, q, err
	}
	items := make([]model.Task, 0, len(recs))
	for _, rec := range recs {
		if f.match(rec.Task) {
			items = append(items, rec.Task)
		}
	}
	return sortAndPage(items, taskSortKeys, q)
}

func (s *MemoryStore) GetTask(id string) (TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tasks[id]
	if !ok {
		return TaskRecord{}, ErrNotFound
	}
	return *rec, nil
}

// UpdateTask applies fn to the stored record under the write lock.
func (s *MemoryStore) UpdateTask(id string, fn func(*TaskRecord)) (TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tasks[id]
	if !ok {
		return TaskRecord{}, ErrNotFound
	}
	fn(rec)
	return *rec, nil
}

// ClaimTask moves a queued task to running. It returns false when the task is gone or
// no longer queued.
func (s *MemoryStore) ClaimTask(id, providerID string) (TaskRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tasks[id]
	if !ok || rec.Status != model.StatusQueued {
		return TaskRecord{}, false
	}
	rec.Status = model.StatusRunning
	rec.ProviderID = providerID
	rec.Attempt++
	return *rec, true
}

var ErrNotRetryable = errors.New("task is not in a failed state")

// RetryTask puts a failed task back in the queue and clears its error fields.
func (s *MemoryStore) RetryTask(id string) (TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tasks[id]
	if !ok {
		return TaskRecord{}, ErrNotFound
	}
	if !rec.Status.Failed() {
		return TaskRecord{}, fmt.Errorf("%w: %w (status %s)", ErrConflict, ErrNotRetryable, rec.Status)
	}
	rec.Status = model.StatusQueued
	rec.ErrorCode = nil
	rec.ErrorMsg = nil
	rec.Retryable = false
	rec.VideoURL = nil
	rec.MetadataURL = model.StringPtr("/api/v1/tasks/" + id + "/metadata")
	return *rec, nil
}

// QueuedTasks returns the ids of a run's queued tasks in execution order.
func (s *MemoryStore) QueuedTasks(runID string) []string {
	recs, err := s.TaskRecords(runID)
	if err != nil {
		return nil
	}
	var ids []string
	for _, rec := range recs {
		if rec.Status == model.StatusQueued {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}
