package provider

import (
	"errors"
	"math/rand"
	"slices"

	"cineflow/console/internal/model"
)

var ErrNoProvider = errors.New("no enabled provider for task")

// Catalog is the part of the store routing reads.
type Catalog interface {
	EnabledProviders() []model.Provider
	ProviderModelIDs(modelID, providerID string) []string
}

// Requirement describes what a segment needs from a provider.
type Requirement struct {
	Duration   int
	Resolution model.Resolution
	Pro        bool
	Image      bool
}

func RequirementFor(seg model.Segment) Requirement {
	return Requirement{
		Duration:   seg.DurationSeconds,
		Resolution: seg.Resolution,
		Pro:        seg.IsPro,
		Image:      seg.ImageURL != nil,
	}
}

func (r Requirement) satisfiedBy(p model.Provider) bool {
	if r.Pro && !p.SupportsPro {
		return false
	}
	if r.Image && !p.SupportsImageToVideo {
		return false
	}
	if r.Duration != 0 && !slices.Contains(p.SupportedDurations, r.Duration) {
		return false
	}
	if r.Resolution != "" && !slices.Contains(p.SupportedResolutions, r.Resolution) {
		return false
	}
	return true
}

type Candidate struct {
	ProviderID      string
	ProviderModelID string
	Weight          int
}

// Route lists the providers a task may run on, in the order they should be tried.
// Default and failover routing try enabled providers by ascending priority; weighted
// routing picks one candidate with probability proportional to its weight.
func Route(cat Catalog, modelID string, strategy model.RoutingStrategy, req Requirement, rng *rand.Rand) ([]Candidate, error) {
	var candidates []Candidate
	for _, p := range cat.EnabledProviders() {
		ids := cat.ProviderModelIDs(modelID, p.ID)
		if len(ids) == 0 || !req.satisfiedBy(p) {
			continue
		}
		candidates = append(candidates, Candidate{ProviderID: p.ID, ProviderModelID: ids[0], Weight: max(p.Weight, 1)})
	}
	if len(candidates) == 0 {
		return nil, ErrNoProvider
	}
	if strategy == model.RoutingWeighted {
		return []Candidate{pickWeighted(candidates, rng)}, nil
	}
	return candidates, nil
}

func pickWeighted(candidates []Candidate, rng *rand.Rand) Candidate {
	total := 0
	for _, c := range candidates {
		total += c.Weight
	}
	n := rng.Intn(total)
	for _, c := range candidates {
		if n < c.Weight {
			return c
		}
		n -= c.Weight
	}
	return candidates[len(candidates)-1]
}
