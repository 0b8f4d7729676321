package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validRequest() RunCreateRequest {
	return RunCreateRequest{
		StoryboardID: "sb_1",
		ModelID:      "sora2",
		GenCount:     1,
		Concurrency:  5,
		OutputMode:   OutputCentralized,
	}
}

func TestRunCreateRequestNormalize(t *testing.T) {
	req := validRequest()
	req.Range = "   "
	req.OutputPath = "/tmp/out"
	got := req.Normalize()
	require.Equal(t, RangeAll, got.Range)
	require.Empty(t, got.OutputPath)

	req.OutputMode = OutputCustom
	require.Equal(t, "/tmp/out", req.Normalize().OutputPath)
}

func TestRunCreateRequestValidate(t *testing.T) {
	require.NoError(t, validRequest().Normalize().Validate())

	cases := map[string]func(*RunCreateRequest){
		"model_id":         func(r *RunCreateRequest) { r.ModelID = "" },
		"gen_count":        func(r *RunCreateRequest) { r.GenCount = 11 },
		"concurrency":      func(r *RunCreateRequest) { r.Concurrency = 0 },
		"output_path":      func(r *RunCreateRequest) { r.OutputMode = OutputCustom },
		"output_mode":      func(r *RunCreateRequest) { r.OutputMode = "elsewhere" },
		"routing_strategy": func(r *RunCreateRequest) { r.RoutingStrategy = "random" },
	}
	for field, mutate := range cases {
		req := validRequest()
		mutate(&req)
		err := req.Validate()
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), field)
		require.Equal(t, field, verr.Field)
	}
}

func TestSegmentValidate(t *testing.T) {
	seg := Segment{PromptText: "a city", DurationSeconds: 10, Resolution: ResolutionHorizontal}
	require.NoError(t, seg.Validate())

	seg.DurationSeconds = 25
	require.Error(t, seg.Validate())
	seg.IsPro = true
	require.NoError(t, seg.Validate())

	seg.Asset = &Asset{Characters: []Character{{Name: "Alice", ID: "alice"}}}
	require.Error(t, seg.Validate())

	seg.Asset = nil
	seg.PromptText = "  "
	require.Error(t, seg.Validate())
}

func TestParseRange(t *testing.T) {
	indices := []int{1, 2, 3, 4, 5}

	got, err := ParseRange("all", indices)
	require.NoError(t, err)
	require.Equal(t, indices, got)

	got, err = ParseRange("1-2, 4, x, 5-3, 9", indices)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 4}, got)

	_, err = ParseRange("7-9", indices)
	require.ErrorIs(t, err, ErrEmptyRange)
}

func TestTimestampDecodesNaiveAndZoned(t *testing.T) {
	var payload struct {
		A Timestamp  `json:"a"`
		B Timestamp  `json:"b"`
		C *Timestamp `json:"c"`
	}
	raw := `{"a":"2026-01-02T12:00:00Z","b":"2026-01-02T12:00:00.123456","c":null}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	want := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	require.True(t, payload.A.Equal(want))
	require.True(t, payload.B.Equal(want.Add(123456*time.Microsecond)))
	require.Nil(t, payload.C)
}
