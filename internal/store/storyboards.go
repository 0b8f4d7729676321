package store

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"cineflow/console/internal/model"

	"github.com/google/uuid"
)

var storyboardSortKeys = sortKeys[model.Storyboard]{
	"id":            func(a, b model.Storyboard) int { return compareStr(a.ID, b.ID) },
	"name":          func(a, b model.Storyboard) int { return compareStr(a.Name, b.Name) },
	"created_at":    func(a, b model.Storyboard) int { return compareTime(a.CreatedAt.Time, b.CreatedAt.Time) },
	"segment_count": func(a, b model.Storyboard) int { return a.SegmentCount - b.SegmentCount },
}

var segmentSortKeys = sortKeys[model.Segment]{
	"id":               func(a, b model.Segment) int { return compareStr(a.ID, b.ID) },
	"segment_index":    func(a, b model.Segment) int { return a.SegmentIndex - b.SegmentIndex },
	"duration_seconds": func(a, b model.Segment) int { return a.DurationSeconds - b.DurationSeconds },
}

// CreateStoryboard stores a storyboard and its segments. Segments without an index are
// numbered from 1 in the order given; duplicate indices are rejected.
func (s *MemoryStore) CreateStoryboard(name string, segments []model.Segment) (model.Storyboard, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Storyboard{}, fmt.Errorf("%w: name is required", ErrBadRequest)
	}
	if len(segments) == 0 {
		return model.Storyboard{}, fmt.Errorf("%w: storyboard has no segments", ErrBadRequest)
	}
	seen := map[int]bool{}
	for i := range segments {
		if segments[i].SegmentIndex == 0 {
			segments[i].SegmentIndex = i + 1
		}
		if segments[i].Resolution == "" {
			segments[i].Resolution = model.ResolutionHorizontal
		}
		if err := segments[i].Validate(); err != nil {
			return model.Storyboard{}, fmt.Errorf("%w: segment %d: %v", ErrBadRequest, segments[i].SegmentIndex, err)
		}
		if seen[segments[i].SegmentIndex] {
			return model.Storyboard{}, fmt.Errorf("%w: duplicate segment_index %d", ErrBadRequest, segments[i].SegmentIndex)
		}
		seen[segments[i].SegmentIndex] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &storyboardRecord{
		Storyboard: model.Storyboard{
			ID:           uuid.NewString(),
			Name:         name,
			CreatedAt:    model.NewTimestamp(s.now().UTC()),
			SegmentCount: len(segments),
		},
		seq: s.nextSeq(),
	}
	for _, seg := range segments {
		seg.ID = uuid.NewString()
		seg.StoryboardID = rec.ID
		s.segments[seg.ID] = &segmentRecord{Segment: seg, seq: s.nextSeq()}
		rec.segmentIDs = append(rec.segmentIDs, seg.ID)
	}
	s.storyboards[rec.ID] = rec
	return rec.Storyboard, nil
}

// ListStoryboards filters by a case-insensitive name substring when name is set.
func (s *MemoryStore) ListStoryboards(q ListQuery, name string) ([]model.Storyboard, int, ListQuery, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	s.mu.RLock()
	recs := make([]*storyboardRecord, 0, len(s.storyboards))
	for _, rec := range s.storyboards {
		if needle != "" && !strings.Contains(strings.ToLower(rec.Name), needle) {
			continue
		}
		recs = append(recs, rec)
	}
	slices.SortFunc(recs, func(a, b *storyboardRecord) int { return cmp.Compare(b.seq, a.seq) })
	items := make([]model.Storyboard, len(recs))
	for i, rec := range recs {
		items[i] = rec.Storyboard
	}
	s.mu.RUnlock()
	return sortAndPage(items, storyboardSortKeys, q)
}

func (s *MemoryStore) GetStoryboard(id string) (model.Storyboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.storyboards[id]
	if !ok {
		return model.Storyboard{}, ErrNotFound
	}
	return rec.Storyboard, nil
}

// DeleteStoryboard removes a storyboard with its segments, runs and tasks. It refuses
// while any of its runs is still active.
func (s *MemoryStore) DeleteStoryboard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.storyboards[id]
	if !ok {
		return ErrNotFound
	}
	for _, run := range s.runs {
		if run.StoryboardID == id && !run.Status.Final() {
			return fmt.Errorf("%w: storyboard has active run %s", ErrConflict, run.ID)
		}
	}
	for runID, run := range s.runs {
		if run.StoryboardID == id {
			s.deleteRunLocked(runID)
		}
	}
	for _, segID := range rec.segmentIDs {
		delete(s.segments, segID)
	}
	delete(s.storyboards, id)
	return nil
}

// Segments returns every segment of a storyboard by segment index.
func (s *MemoryStore) Segments(storyboardID string) ([]model.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.storyboards[storyboardID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.Segment, 0, len(rec.segmentIDs))
	for _, segID := range rec.segmentIDs {
		if seg, ok := s.segments[segID]; ok {
			out = append(out, seg.Segment)
		}
	}
	slices.SortFunc(out, segmentSortKeys["segment_index"])
	return out, nil
}

// SegmentFilter narrows ListSegments. Zero values match everything.
type SegmentFilter struct {
	Resolution model.Resolution
	IsPro      *bool
}

func (f SegmentFilter) match(seg model.Segment) bool {
	if f.Resolution != "" && seg.Resolution != f.Resolution {
		return false
	}
	return f.IsPro == nil || seg.IsPro == *f.IsPro
}

func (s *MemoryStore) ListSegments(storyboardID string, f SegmentFilter, q ListQuery) ([]model.Segment, int, ListQuery, error) {
	all, err := s.Segments(storyboardID)
	if err != nil {
		return nil, 0, q, err
	}
	items := make([]model.Segment, 0, len(all))
	for _, seg := range all {
		if f.match(seg) {
			items = append(items, seg)
		}
	}
	return sortAndPage(items, segmentSortKeys, q)
}

func (s *MemoryStore) GetSegment(id string) (model.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.segments[id]
	if !ok {
		return model.Segment{}, ErrNotFound
	}
	return rec.Segment, nil
}

// UpdateSegment applies patch and validates the result before storing it.
func (s *MemoryStore) UpdateSegment(id string, patch model.SegmentPatch) (model.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.segments[id]
	if !ok {
		return model.Segment{}, ErrNotFound
	}
	next := patch.Apply(rec.Segment)
	if err := next.Validate(); err != nil {
		return model.Segment{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	rec.Segment = next
	return next, nil
}
