package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cineflow/console/internal/model"
	"cineflow/console/internal/normalize"

	"github.com/spf13/cobra"
)

func newStoryboardsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "storyboards",
		Aliases: []string{"sb"},
		Short:   "List, upload and delete storyboards",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List storyboards, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.api().ListStoryboards(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(items))
			for _, sb := range items {
				rows = append(rows, []string{sb.ID, sb.Name, strconv.Itoa(sb.SegmentCount), formatTime(sb.CreatedAt.Time)})
			}
			return app.render(items, []string{"ID", "NAME", "SEGMENTS", "CREATED"}, rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "upload <file.json>",
		Short: "Upload a storyboard JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			sb, err := app.api().UploadStoryboard(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			if app.jsonOut {
				return app.render(sb, nil, nil)
			}
			app.printf("Uploaded storyboard %s (%d segments)\n", sb.ID, sb.SegmentCount)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <storyboard-id>",
		Short: "Delete a storyboard with its runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.api().DeleteStoryboard(cmd.Context(), args[0]); err != nil {
				return err
			}
			app.printf("Deleted storyboard %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func newSegmentsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "segments",
		Aliases: []string{"seg"},
		Short:   "Inspect and edit storyboard segments",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <storyboard-id>",
		Short: "List the segments of a storyboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			segs, err := app.api().ListSegments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(segs))
			for _, s := range segs {
				asset := normalize.Asset(s.Asset)
				rows = append(rows, []string{
					strconv.Itoa(s.SegmentIndex),
					s.ID,
					fmt.Sprintf("%ds", s.DurationSeconds),
					string(s.Resolution),
					strconv.FormatBool(s.IsPro),
					strings.Join(asset.CharacterDisplays(), ", "),
					truncate(s.PromptText, 48),
				})
			}
			return app.render(segs, []string{"#", "ID", "DURATION", "RESOLUTION", "PRO", "CHARACTERS", "PROMPT"}, rows)
		},
	})

	cmd.AddCommand(newSegmentEditCommand(app))

	cmd.AddCommand(&cobra.Command{
		Use:   "set-image <segment-id> <image-file>",
		Short: "Upload a start image for a segment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			url, err := app.api().UploadSegmentImage(cmd.Context(), args[0], filepath.Base(args[1]), f)
			if err != nil {
				return err
			}
			app.printf("Start image set: %s\n", url)
			return nil
		},
	})
	return cmd
}

type segmentEdit struct {
	prompt           string
	directorIntent   string
	duration         int
	resolution       string
	pro              bool
	scene            string
	addCharacters    []string
	removeCharacters []string
	addProps         []string
	removeProps      []string
}

func newSegmentEditCommand(app *App) *cobra.Command {
	var e segmentEdit
	cmd := &cobra.Command{
		Use:   "edit <storyboard-id> <segment-index>",
		Short: "Change prompt, timing or assets of a segment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("segment index %q is not a number", args[1])
			}
			segs, err := app.api().ListSegments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var seg *model.Segment
			for i := range segs {
				if segs[i].SegmentIndex == index {
					seg = &segs[i]
					break
				}
			}
			if seg == nil {
				return fmt.Errorf("storyboard %s has no segment %d", args[0], index)
			}

			patch := e.patch(cmd, *seg)
			if err := patch.Apply(*seg).Validate(); err != nil {
				return err
			}
			updated, err := app.api().UpdateSegment(cmd.Context(), seg.ID, patch)
			if err != nil {
				return err
			}
			if app.jsonOut {
				return app.render(updated, nil, nil)
			}
			app.printf("Updated segment %d (%s)\n", updated.SegmentIndex, updated.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&e.prompt, "prompt", "", "Prompt text")
	f.StringVar(&e.directorIntent, "director-intent", "", "Director intent; empty clears it")
	f.IntVar(&e.duration, "duration", 0, "Duration in seconds")
	f.StringVar(&e.resolution, "resolution", "", "horizontal or vertical")
	f.BoolVar(&e.pro, "pro", false, "Generate with the pro model")
	f.StringVar(&e.scene, "scene", "", "Scene asset; empty clears it")
	f.StringArrayVar(&e.addCharacters, "add-character", nil, `Add a character, "Name @id" or "Name"`)
	f.StringArrayVar(&e.removeCharacters, "remove-character", nil, "Remove a character by its display name")
	f.StringArrayVar(&e.addProps, "add-prop", nil, "Add a prop")
	f.StringArrayVar(&e.removeProps, "remove-prop", nil, "Remove a prop")
	return cmd
}

// patch carries only the flags the user set. Asset edits start from the current asset.
func (e segmentEdit) patch(cmd *cobra.Command, seg model.Segment) model.SegmentPatch {
	f := cmd.Flags()
	var p model.SegmentPatch
	if f.Changed("prompt") {
		p.PromptText = &e.prompt
	}
	if f.Changed("director-intent") {
		p.DirectorIntent = &e.directorIntent
	}
	if f.Changed("duration") {
		p.DurationSeconds = &e.duration
	}
	if f.Changed("resolution") {
		r := model.Resolution(e.resolution)
		p.Resolution = &r
	}
	if f.Changed("pro") {
		p.IsPro = &e.pro
	}

	assetChanged := f.Changed("scene") || len(e.addCharacters)+len(e.removeCharacters)+len(e.addProps)+len(e.removeProps) > 0
	if !assetChanged {
		return p
	}
	asset := normalize.Asset(seg.Asset)
	for _, c := range e.removeCharacters {
		asset.RemoveCharacter(c)
	}
	for _, c := range e.addCharacters {
		asset.AddCharacter(c)
	}
	for _, prop := range e.removeProps {
		asset.RemoveProp(prop)
	}
	for _, prop := range e.addProps {
		asset.AddProp(strings.TrimSpace(prop))
	}
	if f.Changed("scene") {
		asset.Scene = nil
		if s := strings.TrimSpace(e.scene); s != "" {
			asset.Scene = &s
		}
	}
	p.Asset = &asset
	return p
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
