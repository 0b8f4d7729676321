package provider

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"cineflow/console/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		msg       string
		code      model.TaskErrorCode
		retryable bool
	}{
		{"", model.ErrUnknown, false},
		{"Prompt rejected by Safety system", model.ErrContentPolicy, false},
		{"schema_error: missing field", model.ErrValidation, false},
		{"HTTP 429 Too Many Requests", model.ErrRateLimited, true},
		{"Request timed out", model.ErrTimeout, true},
		{"Quota exhausted", model.ErrQuotaExceeded, true},
		{"Invalid API key supplied", model.ErrUnauthorized, true},
		{"403 Forbidden", model.ErrForbidden, true},
		{"model overloaded", model.ErrDependency, true},
		{"upstream returned 502", model.ErrServer, true},
		{"something odd happened", model.ErrUnknown, false},
	}
	for _, tc := range cases {
		code, retryable := ClassifyError(tc.msg)
		assert.Equal(t, tc.code, code, tc.msg)
		assert.Equal(t, tc.retryable, retryable, tc.msg)
	}
}

func TestMockFailuresAreClassified(t *testing.T) {
	for _, msg := range mockFailures {
		code, _ := ClassifyError(msg)
		assert.NotEqual(t, model.ErrUnknown, code, msg)
	}
}

type fakeCatalog struct {
	providers []model.Provider
	ids       map[string][]string
}

func (f fakeCatalog) EnabledProviders() []model.Provider { return f.providers }

func (f fakeCatalog) ProviderModelIDs(_, providerID string) []string { return f.ids[providerID] }

func testCatalog() fakeCatalog {
	both := []model.Resolution{model.ResolutionHorizontal, model.ResolutionVertical}
	return fakeCatalog{
		providers: []model.Provider{
			{ID: "a", Priority: 10, Weight: 1, SupportedDurations: []int{10, 15}, SupportedResolutions: both, SupportsPro: true},
			{ID: "b", Priority: 20, Weight: 3, SupportedDurations: []int{4, 8, 10}, SupportedResolutions: both, SupportsImageToVideo: true},
		},
		ids: map[string][]string{"a": {"a-1", "a-2"}, "b": {"b-1"}},
	}
}

func TestRouteByPriority(t *testing.T) {
	got, err := Route(testCatalog(), "m", model.RoutingFailover, Requirement{Duration: 10}, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Candidate{ProviderID: "a", ProviderModelID: "a-1", Weight: 1}, got[0])
	assert.Equal(t, "b", got[1].ProviderID)
}

func TestRouteFiltersCapabilities(t *testing.T) {
	got, err := Route(testCatalog(), "m", model.RoutingDefault, Requirement{Duration: 10, Image: true}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ProviderID)

	_, err = Route(testCatalog(), "m", model.RoutingDefault, Requirement{Duration: 4, Pro: true}, nil)
	require.ErrorIs(t, err, ErrNoProvider)
}

func TestRouteWeightedPicksOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		got, err := Route(testCatalog(), "m", model.RoutingWeighted, Requirement{Duration: 10}, rng)
		require.NoError(t, err)
		require.Len(t, got, 1)
		seen[got[0].ProviderID]++
	}
	assert.Greater(t, seen["b"], seen["a"])
}

func TestMockGenerator(t *testing.T) {
	gen := NewMockGenerator(0, 0, 1)
	out, pErr := gen.Generate(context.Background(), GenerateInput{
		TaskID:  "t1",
		Segment: model.Segment{SegmentIndex: 2, PromptText: "a fox", DirectorIntent: model.StringPtr("slow pan")},
	})
	require.Nil(t, pErr)
	assert.Equal(t, "a fox\nDirector intent: slow pan", out.FullPrompt)
	assert.True(t, strings.HasPrefix(string(out.Video), "MOCK-MP4"))

	_, pErr = gen.Generate(context.Background(), GenerateInput{Segment: model.Segment{PromptText: " "}})
	require.NotNil(t, pErr)
	code, _ := ClassifyError(pErr.Message)
	assert.Equal(t, model.ErrValidation, code)

	failing := NewMockGenerator(0, 1, 1)
	_, pErr = failing.Generate(context.Background(), GenerateInput{Segment: model.Segment{PromptText: "x"}})
	require.NotNil(t, pErr)
}

func TestMockGeneratorHonoursCancel(t *testing.T) {
	gen := NewMockGenerator(time.Minute, 0, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, pErr := gen.Generate(ctx, GenerateInput{Segment: model.Segment{PromptText: "x"}})
	require.NotNil(t, pErr)
	assert.Contains(t, pErr.Message, "canceled")
}

func TestFullPromptIncludesAsset(t *testing.T) {
	seg := model.Segment{
		PromptText: "Opening shot",
		Asset: &model.Asset{
			Characters: []model.Character{{Name: "Mira", ID: "@mira"}},
			Scene:      model.StringPtr("harbor"),
			Props:      []string{"lantern"},
		},
	}
	assert.Equal(t, "Opening shot\nCharacters: Mira @mira\nScene: harbor\nProps: lantern", FullPrompt(seg))
}
