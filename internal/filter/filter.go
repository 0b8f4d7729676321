// Package filter narrows task and run collections with composable predicates.
package filter

import (
	"fmt"
	"time"

	"cineflow/console/internal/model"
)

type Predicate[T any] func(T) bool

// And matches when every predicate matches. No predicates match everything.
func And[T any](preds ...Predicate[T]) Predicate[T] {
	return func(v T) bool {
		for _, p := range preds {
			if p != nil && !p(v) {
				return false
			}
		}
		return true
	}
}

// Apply returns the matching items in their original order.
func Apply[T any](items []T, pred Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if pred == nil || pred(it) {
			out = append(out, it)
		}
	}
	return out
}

type Media string

const (
	MediaAll   Media = "all"
	MediaVideo Media = "video"
	MediaImage Media = "image"
)

type Date string

const (
	DateAll   Date = "all"
	DateToday Date = "today"
	DateWeek  Date = "week"
)

type TaskStatus string

const (
	StatusAll             TaskStatus = "all"
	StatusFailedRetryable TaskStatus = "failed_retryable"
)

func ParseMedia(s string) (Media, error) {
	switch m := Media(s); m {
	case "", MediaAll:
		return MediaAll, nil
	case MediaVideo, MediaImage:
		return m, nil
	}
	return "", fmt.Errorf("unknown media filter %q", s)
}

func ParseDate(s string) (Date, error) {
	switch d := Date(s); d {
	case "", DateAll:
		return DateAll, nil
	case DateToday, DateWeek:
		return d, nil
	}
	return "", fmt.Errorf("unknown date filter %q", s)
}

func ParseStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case "", StatusAll:
		return StatusAll, nil
	case StatusFailedRetryable:
		return st, nil
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

func ByMedia(m Media) Predicate[model.Task] {
	switch m {
	case MediaVideo:
		return func(t model.Task) bool { return t.VideoURL != nil && *t.VideoURL != "" }
	case MediaImage:
		return func(t model.Task) bool { return t.VideoURL == nil || *t.VideoURL == "" }
	}
	return nil
}

// ByDate keeps tasks created today (local calendar day of now) or within the last
// seven days. Tasks without created_at always match.
func ByDate(d Date, now time.Time) Predicate[model.Task] {
	switch d {
	case DateToday:
		return func(t model.Task) bool {
			if t.CreatedAt == nil || t.CreatedAt.IsZero() {
				return true
			}
			return sameDay(t.CreatedAt.In(now.Location()), now)
		}
	case DateWeek:
		cutoff := now.Add(-7 * 24 * time.Hour)
		return func(t model.Task) bool {
			if t.CreatedAt == nil || t.CreatedAt.IsZero() {
				return true
			}
			return !t.CreatedAt.Before(cutoff)
		}
	}
	return nil
}

func ByStatus(s TaskStatus) Predicate[model.Task] {
	if s == StatusFailedRetryable {
		return func(t model.Task) bool { return t.CanRetry() }
	}
	return nil
}

// Criteria is the set of filters the results and run detail views expose.
type Criteria struct {
	Media  Media
	Date   Date
	Status TaskStatus
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c Criteria) Predicate() Predicate[model.Task] {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return And(ByMedia(c.Media), ByDate(c.Date, now()), ByStatus(c.Status))
}

func Tasks(tasks []model.Task, c Criteria) []model.Task {
	return Apply(tasks, c.Predicate())
}

// RunsCreatedWithin keeps runs created at or after now-d. Runs without a creation
// time always match.
func RunsCreatedWithin(d time.Duration, now time.Time) Predicate[model.Run] {
	cutoff := now.Add(-d)
	return func(r model.Run) bool {
		return r.CreatedAt.IsZero() || !r.CreatedAt.Before(cutoff)
	}
}

func RunStatusIn(statuses ...model.Status) Predicate[model.Run] {
	set := make(map[model.Status]bool, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return func(r model.Run) bool { return len(set) == 0 || set[r.Status] }
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
