package store

import "cineflow/console/internal/model"

// SeedDemo adds a small storyboard so a fresh backend has something to run.
func (s *MemoryStore) SeedDemo() (model.Storyboard, error) {
	scene := "Harbor at dawn"
	return s.CreateStoryboard("Demo: Harbor Lights", []model.Segment{
		{
			PromptText:      "Wide establishing shot of a foggy harbor, fishing boats rocking gently",
			DurationSeconds: 10,
			Resolution:      model.ResolutionHorizontal,
			Asset:           &model.Asset{Scene: &scene, Characters: []model.Character{}, Props: []string{"lantern"}},
		},
		{
			PromptText:      "Mira walks along the pier holding a lantern",
			DirectorIntent:  model.StringPtr("slow dolly following from behind"),
			DurationSeconds: 15,
			Resolution:      model.ResolutionHorizontal,
			Asset: &model.Asset{
				Scene:      &scene,
				Characters: []model.Character{{Name: "Mira", ID: "@mira"}},
				Props:      []string{"lantern"},
			},
		},
		{
			PromptText:      "Close-up of the lantern flame as the sun breaks through",
			DurationSeconds: 25,
			Resolution:      model.ResolutionVertical,
			IsPro:           true,
		},
	})
}
