package provider

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"cineflow/console/internal/model"
)

type GenerateInput struct {
	TaskID          string
	RunID           string
	ProviderID      string
	ProviderModelID string
	Segment         model.Segment
	VersionIndex    int
}

type GenerateOutput struct {
	FullPrompt  string
	Video       []byte
	ContentType string
}

// Error is a provider failure. Message is the raw upstream text; the executor
// classifies it.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (GenerateOutput, *Error)
}

// mockFailures are the upstream messages the mock generator fails with.
var mockFailures = []string{
	"Request timed out after 300s",
	"429 Too Many Requests",
	"upstream service unavailable (503)",
	"prompt rejected: content policy violation",
	"invalid parameter: duration",
	"insufficient balance on provider account",
}

// MockGenerator simulates a video provider. It sleeps for Duration, fails with
// probability FailureRate and otherwise returns a small placeholder clip.
type MockGenerator struct {
	Duration    time.Duration
	FailureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockGenerator(duration time.Duration, failureRate float64, seed int64) *MockGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockGenerator{
		Duration:    duration,
		FailureRate: failureRate,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (m *MockGenerator) Generate(ctx context.Context, in GenerateInput) (GenerateOutput, *Error) {
	if err := waitCancelable(ctx, m.jitter()); err != nil {
		return GenerateOutput{}, &Error{Message: "request canceled: " + err.Error()}
	}
	if strings.TrimSpace(in.Segment.PromptText) == "" {
		return GenerateOutput{}, &Error{Message: "prompt text cannot be empty"}
	}
	if msg, fail := m.failure(); fail {
		return GenerateOutput{}, &Error{Message: msg}
	}
	prompt := FullPrompt(in.Segment)
	clip := fmt.Sprintf("MOCK-MP4 provider=%s model=%s task=%s segment=%d version=%d\n%s\n",
		in.ProviderID, in.ProviderModelID, in.TaskID, in.Segment.SegmentIndex, in.VersionIndex, prompt)
	return GenerateOutput{FullPrompt: prompt, Video: []byte(clip), ContentType: "video/mp4"}, nil
}

func (m *MockGenerator) jitter() time.Duration {
	if m.Duration <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	spread := int64(m.Duration / 2)
	if spread == 0 {
		return m.Duration
	}
	return m.Duration/2 + time.Duration(m.rng.Int63n(spread*2))
}

func (m *MockGenerator) failure() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailureRate <= 0 || m.rng.Float64() >= m.FailureRate {
		return "", false
	}
	return mockFailures[m.rng.Intn(len(mockFailures))], true
}

// Roll reports true with probability p using the generator's source.
func (m *MockGenerator) Roll(p float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return p > 0 && m.rng.Float64() < p
}

// FullPrompt is the text actually sent upstream: the segment prompt followed by the
// director intent, characters, scene and props when present.
func FullPrompt(seg model.Segment) string {
	parts := []string{strings.TrimSpace(seg.PromptText)}
	if seg.DirectorIntent != nil && strings.TrimSpace(*seg.DirectorIntent) != "" {
		parts = append(parts, "Director intent: "+strings.TrimSpace(*seg.DirectorIntent))
	}
	if a := seg.Asset; a != nil {
		if len(a.Characters) > 0 {
			names := make([]string, len(a.Characters))
			for i, c := range a.Characters {
				names[i] = c.Display()
			}
			parts = append(parts, "Characters: "+strings.Join(names, ", "))
		}
		if a.Scene != nil && strings.TrimSpace(*a.Scene) != "" {
			parts = append(parts, "Scene: "+strings.TrimSpace(*a.Scene))
		}
		if len(a.Props) > 0 {
			parts = append(parts, "Props: "+strings.Join(a.Props, ", "))
		}
	}
	return strings.Join(parts, "\n")
}

func waitCancelable(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
