package store

import (
	"fmt"
	"slices"
	"strings"

	"cineflow/console/internal/model"
)

const (
	maxPriority = 100
	maxWeight   = 100
)

type catalogModel struct {
	model.Model
	// providerMap lists the provider-side model ids per provider.
	providerMap map[string][]string
}

type catalogProvider struct {
	model.Provider
}

func seedProviders() map[string]*catalogProvider {
	both := []model.Resolution{model.ResolutionHorizontal, model.ResolutionVertical}
	return map[string]*catalogProvider{
		"sora_hk": {model.Provider{
			ID: "sora_hk", DisplayName: "Sora.hk", Enabled: true, Priority: 10, Weight: 1,
			SupportsImageToVideo: true, SupportedDurations: []int{10, 15, 25},
			SupportedResolutions: both, SupportsPro: true,
		}},
		"openai": {model.Provider{
			ID: "openai", DisplayName: "OpenAI", Enabled: false, Priority: 20, Weight: 1,
			SupportsImageToVideo: true, SupportedDurations: []int{4, 8, 12},
			SupportedResolutions: both, SupportsPro: true,
		}},
		"aihubmix": {model.Provider{
			ID: "aihubmix", DisplayName: "AI Hub Mix", Enabled: false, Priority: 30, Weight: 1,
			SupportsImageToVideo: true, SupportedDurations: []int{4, 8, 12},
			SupportedResolutions: both, SupportsPro: true,
		}},
	}
}

func seedModels() map[string]*catalogModel {
	return map[string]*catalogModel{
		"sora2": {
			Model: model.Model{ID: "sora2", DisplayName: "Sora2", Description: model.StringPtr("Logical model for standard generation"), Enabled: true},
			providerMap: map[string][]string{
				"sora_hk":  {"sora2"},
				"openai":   {"sora-2", "sora-2-2025-12-08", "sora-2-2025-10-06"},
				"aihubmix": {"sora-2", "web-sora-2"},
			},
		},
		"sora2pro": {
			Model: model.Model{ID: "sora2pro", DisplayName: "Sora2 Pro", Description: model.StringPtr("Logical model for pro generation"), Enabled: true},
			providerMap: map[string][]string{
				"sora_hk":  {"sora2-pro"},
				"openai":   {"sora-2-pro", "sora-2-pro-2025-10-06"},
				"aihubmix": {"sora-2-pro", "web-sora-2-pro"},
			},
		},
	}
}

var modelSortKeys = sortKeys[model.Model]{
	"id":           func(a, b model.Model) int { return compareStr(a.ID, b.ID) },
	"display_name": func(a, b model.Model) int { return compareStr(a.DisplayName, b.DisplayName) },
	"enabled":      func(a, b model.Model) int { return compareBool(a.Enabled, b.Enabled) },
}

var providerSortKeys = sortKeys[model.Provider]{
	"id":           func(a, b model.Provider) int { return compareStr(a.ID, b.ID) },
	"display_name": func(a, b model.Provider) int { return compareStr(a.DisplayName, b.DisplayName) },
	"priority":     func(a, b model.Provider) int { return a.Priority - b.Priority },
	"weight":       func(a, b model.Provider) int { return a.Weight - b.Weight },
	"enabled":      func(a, b model.Provider) int { return compareBool(a.Enabled, b.Enabled) },
}

// ModelUpdate is the admin PATCH body for a model.
type ModelUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

func (u ModelUpdate) Validate() error {
	if u.DisplayName != nil && strings.TrimSpace(*u.DisplayName) == "" {
		return fmt.Errorf("%w: display_name cannot be empty", ErrBadRequest)
	}
	return nil
}

// ProviderUpdate is the admin PATCH body for a provider.
type ProviderUpdate struct {
	DisplayName          *string            `json:"display_name,omitempty"`
	Enabled              *bool              `json:"enabled,omitempty"`
	Priority             *int               `json:"priority,omitempty"`
	Weight               *int               `json:"weight,omitempty"`
	SupportsImageToVideo *bool              `json:"supports_image_to_video,omitempty"`
	SupportedDurations   []int              `json:"supported_durations,omitempty"`
	SupportedResolutions []model.Resolution `json:"supported_resolutions,omitempty"`
	SupportsPro          *bool              `json:"supports_pro,omitempty"`
}

func (u ProviderUpdate) Validate() error {
	if u.DisplayName != nil && strings.TrimSpace(*u.DisplayName) == "" {
		return fmt.Errorf("%w: display_name cannot be empty", ErrBadRequest)
	}
	if u.Priority != nil && (*u.Priority < 1 || *u.Priority > maxPriority) {
		return fmt.Errorf("%w: priority must be between 1 and %d", ErrBadRequest, maxPriority)
	}
	if u.Weight != nil && (*u.Weight < 1 || *u.Weight > maxWeight) {
		return fmt.Errorf("%w: weight must be between 1 and %d", ErrBadRequest, maxWeight)
	}
	for _, d := range u.SupportedDurations {
		if !slices.Contains(model.AllowedDurations, d) && d != model.ProOnlyDuration {
			return fmt.Errorf("%w: unsupported duration %d", ErrBadRequest, d)
		}
	}
	for _, r := range u.SupportedResolutions {
		if !r.Valid() {
			return fmt.Errorf("%w: unsupported resolution %q", ErrBadRequest, r)
		}
	}
	return nil
}

func (s *MemoryStore) ListModels(q ListQuery, enabled *bool) ([]model.Model, int, ListQuery, error) {
	s.mu.RLock()
	items := make([]model.Model, 0, len(s.models))
	for _, m := range s.models {
		if enabled != nil && m.Enabled != *enabled {
			continue
		}
		items = append(items, m.Model)
	}
	s.mu.RUnlock()
	slices.SortFunc(items, modelSortKeys["id"])
	return sortAndPage(items, modelSortKeys, q)
}

func (s *MemoryStore) GetModel(id string) (model.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	if !ok {
		return model.Model{}, ErrNotFound
	}
	return m.Model, nil
}

// ProviderModelIDs returns the provider-side ids mapped to a logical model.
func (s *MemoryStore) ProviderModelIDs(modelID, providerID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[modelID]
	if !ok {
		return nil
	}
	return append([]string(nil), m.providerMap[providerID]...)
}

func (s *MemoryStore) UpdateModel(id string, u ModelUpdate) (model.Model, error) {
	if err := u.Validate(); err != nil {
		return model.Model{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[id]
	if !ok {
		return model.Model{}, ErrNotFound
	}
	if u.DisplayName != nil {
		m.DisplayName = strings.TrimSpace(*u.DisplayName)
	}
	if u.Description != nil {
		desc := *u.Description
		m.Description = &desc
	}
	if u.Enabled != nil {
		m.Enabled = *u.Enabled
	}
	return m.Model, nil
}

func (s *MemoryStore) ListProviders(q ListQuery, enabled *bool) ([]model.Provider, int, ListQuery, error) {
	s.mu.RLock()
	items := make([]model.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		if enabled != nil && p.Enabled != *enabled {
			continue
		}
		items = append(items, cloneProvider(p.Provider))
	}
	s.mu.RUnlock()
	slices.SortFunc(items, providerSortKeys["priority"])
	return sortAndPage(items, providerSortKeys, q)
}

func (s *MemoryStore) GetProvider(id string) (model.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[id]
	if !ok {
		return model.Provider{}, ErrNotFound
	}
	return cloneProvider(p.Provider), nil
}

func (s *MemoryStore) UpdateProvider(id string, u ProviderUpdate) (model.Provider, error) {
	if err := u.Validate(); err != nil {
		return model.Provider{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[id]
	if !ok {
		return model.Provider{}, ErrNotFound
	}
	if u.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*u.DisplayName)
	}
	if u.Enabled != nil {
		p.Enabled = *u.Enabled
	}
	if u.Priority != nil {
		p.Priority = *u.Priority
	}
	if u.Weight != nil {
		p.Weight = *u.Weight
	}
	if u.SupportsImageToVideo != nil {
		p.SupportsImageToVideo = *u.SupportsImageToVideo
	}
	if u.SupportedDurations != nil {
		p.SupportedDurations = append([]int(nil), u.SupportedDurations...)
	}
	if u.SupportedResolutions != nil {
		p.SupportedResolutions = append([]model.Resolution(nil), u.SupportedResolutions...)
	}
	if u.SupportsPro != nil {
		p.SupportsPro = *u.SupportsPro
	}
	return cloneProvider(p.Provider), nil
}

// EnabledProviders returns enabled providers by ascending priority.
func (s *MemoryStore) EnabledProviders() []model.Provider {
	enabled := true
	items, _, _, _ := s.ListProviders(ListQuery{PageSize: maxPageSize, Sort: "priority", Order: "asc"}, &enabled)
	return items
}

func cloneProvider(p model.Provider) model.Provider {
	p.SupportedDurations = append([]int(nil), p.SupportedDurations...)
	p.SupportedResolutions = append([]model.Resolution(nil), p.SupportedResolutions...)
	return p
}

// ModelAdmin is the admin view of a model, including its provider mapping.
type ModelAdmin struct {
	model.Model
	ProviderMap map[string][]string `json:"provider_map"`
}

func (m *catalogModel) admin() ModelAdmin {
	pm := make(map[string][]string, len(m.providerMap))
	for k, v := range m.providerMap {
		pm[k] = append([]string(nil), v...)
	}
	return ModelAdmin{Model: m.Model, ProviderMap: pm}
}

func (s *MemoryStore) GetModelAdmin(id string) (ModelAdmin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	if !ok {
		return ModelAdmin{}, ErrNotFound
	}
	return m.admin(), nil
}

func (s *MemoryStore) ListModelAdmins(q ListQuery, enabled *bool) ([]ModelAdmin, int, ListQuery, error) {
	items, total, q, err := s.ListModels(q, enabled)
	if err != nil {
		return nil, 0, q, err
	}
	out := make([]ModelAdmin, 0, len(items))
	for _, m := range items {
		if a, err := s.GetModelAdmin(m.ID); err == nil {
			out = append(out, a)
		}
	}
	return out, total, q, nil
}

// SetProviderModelIDs replaces the provider-side ids a model maps to. An empty list
// removes the provider from the model.
func (s *MemoryStore) SetProviderModelIDs(modelID, providerID string, ids []string) (ModelAdmin, error) {
	seen := map[string]bool{}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return ModelAdmin{}, fmt.Errorf("%w: provider_model_ids cannot contain empty values", ErrBadRequest)
		}
		if seen[id] {
			return ModelAdmin{}, fmt.Errorf("%w: provider_model_ids cannot contain duplicates", ErrBadRequest)
		}
		seen[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.providers[providerID]; !ok {
		return ModelAdmin{}, fmt.Errorf("provider %s: %w", providerID, ErrNotFound)
	}
	m, ok := s.models[modelID]
	if !ok {
		return ModelAdmin{}, fmt.Errorf("model %s: %w", modelID, ErrNotFound)
	}
	if len(ids) == 0 {
		delete(m.providerMap, providerID)
	} else {
		m.providerMap[providerID] = append([]string(nil), ids...)
	}
	return m.admin(), nil
}
