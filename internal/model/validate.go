package model

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const RangeAll = "all"

var ErrEmptyRange = errors.New("no valid segments in range")

// ValidationError is returned for input rejected before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Normalize applies request defaults: a blank range means every segment, and the
// output path is only kept for custom output.
func (r RunCreateRequest) Normalize() RunCreateRequest {
	r.StoryboardID = strings.TrimSpace(r.StoryboardID)
	r.ModelID = strings.TrimSpace(r.ModelID)
	r.Range = strings.TrimSpace(r.Range)
	if r.Range == "" {
		r.Range = RangeAll
	}
	if r.OutputMode == "" {
		r.OutputMode = OutputCentralized
	}
	if r.OutputMode != OutputCustom {
		r.OutputPath = ""
	}
	if r.RoutingStrategy == "" {
		r.RoutingStrategy = RoutingDefault
	}
	return r
}

func (r RunCreateRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.StoryboardID) == "":
		return invalid("storyboard_id", "required")
	case strings.TrimSpace(r.ModelID) == "":
		return invalid("model_id", "required")
	case r.GenCount < 1 || r.GenCount > 10:
		return invalid("gen_count", "must be between 1 and 10, got %d", r.GenCount)
	case r.Concurrency < 1 || r.Concurrency > 50:
		return invalid("concurrency", "must be between 1 and 50, got %d", r.Concurrency)
	case !r.OutputMode.Valid():
		return invalid("output_mode", "unknown mode %q", r.OutputMode)
	case r.OutputMode == OutputCustom && strings.TrimSpace(r.OutputPath) == "":
		return invalid("output_path", "required for custom output mode")
	case r.RoutingStrategy != "" && !r.RoutingStrategy.Valid():
		return invalid("routing_strategy", "unknown strategy %q", r.RoutingStrategy)
	}
	return nil
}

func (s Segment) Validate() error {
	if strings.TrimSpace(s.PromptText) == "" {
		return invalid("prompt_text", "cannot be empty")
	}
	allowed := slices.Contains(AllowedDurations, s.DurationSeconds) ||
		(s.IsPro && s.DurationSeconds == ProOnlyDuration)
	if !allowed {
		return invalid("duration_seconds", "%d is not allowed (pro=%t)", s.DurationSeconds, s.IsPro)
	}
	if !s.Resolution.Valid() {
		return invalid("resolution", "unknown resolution %q", s.Resolution)
	}
	if s.Asset != nil {
		for _, c := range s.Asset.Characters {
			if c.ID != "" && !ValidCharacterID(c.ID) {
				return invalid("asset.characters", "invalid character id %q", c.ID)
			}
		}
	}
	return nil
}

// ParseRange selects segment indices from expr ("all" or a comma separated list of
// n and a-b parts). Malformed parts are skipped; unknown indices are dropped.
func ParseRange(expr string, indices []int) ([]int, error) {
	known := map[int]bool{}
	for _, idx := range indices {
		known[idx] = true
	}
	if strings.EqualFold(strings.TrimSpace(expr), RangeAll) || strings.TrimSpace(expr) == "" {
		return sortedKeys(known), nil
	}
	selected := map[int]bool{}
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil || start > end {
				continue
			}
			for i := start; i <= end; i++ {
				if known[i] {
					selected[i] = true
				}
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		if known[n] {
			selected[n] = true
		}
	}
	if len(selected) == 0 {
		return nil, ErrEmptyRange
	}
	return sortedKeys(selected), nil
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
