package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentPatchApplyKeepsAbsentFields(t *testing.T) {
	seg := Segment{
		ID:              "s1",
		PromptText:      "old",
		DirectorIntent:  StringPtr("slow pan"),
		DurationSeconds: 10,
		Resolution:      ResolutionHorizontal,
	}
	prompt := "new"
	got := SegmentPatch{PromptText: &prompt}.Apply(seg)
	require.Equal(t, "new", got.PromptText)
	require.Equal(t, "slow pan", *got.DirectorIntent)
	require.Equal(t, 10, got.DurationSeconds)
}

func TestSegmentPatchBlankClears(t *testing.T) {
	seg := Segment{DirectorIntent: StringPtr("x"), ImageURL: StringPtr("/uploads/a.png")}
	blank := ""
	got := SegmentPatch{DirectorIntent: &blank, ImageURL: &blank}.Apply(seg)
	require.Nil(t, got.DirectorIntent)
	require.Nil(t, got.ImageURL)
}

func TestSegmentPatchRoundTrip(t *testing.T) {
	seg := Segment{
		ID:              "s1",
		PromptText:      "a cat",
		DurationSeconds: 25,
		Resolution:      ResolutionVertical,
		IsPro:           true,
		Asset:           &Asset{Characters: []Character{{Name: "Alice", ID: "@alice"}}, Props: []string{}},
	}
	got := seg.Patch().Apply(Segment{ID: "s1"})
	require.Equal(t, seg, got)
}
