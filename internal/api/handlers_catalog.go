package api

import (
	"net/http"

	"cineflow/console/internal/store"

	"github.com/gin-gonic/gin"
)

func (s *Server) listProviders(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	enabled, ok := queryBool(c, "enabled")
	if !ok {
		return
	}
	items, total, q, err := s.store.ListProviders(q, enabled)
	if err != nil {
		s.writeStoreError(c, err, "Provider")
		return
	}
	writeJSON(c, http.StatusOK, pageOf(items, total, q))
}

func (s *Server) getProvider(c *gin.Context) {
	p, err := s.store.GetProvider(c.Param("provider_id"))
	if err != nil {
		s.writeStoreError(c, err, "Provider")
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (s *Server) providerCapabilities(c *gin.Context) {
	p, err := s.store.GetProvider(c.Param("provider_id"))
	if err != nil {
		s.writeStoreError(c, err, "Provider")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"supports_image_to_video": p.SupportsImageToVideo,
		"supported_durations":     p.SupportedDurations,
		"supported_resolutions":   p.SupportedResolutions,
		"supports_pro":            p.SupportsPro,
	})
}

func (s *Server) patchProvider(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var u store.ProviderUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		writeValidation(c, "Invalid provider update", map[string]any{"reason": err.Error()})
		return
	}
	p, err := s.store.UpdateProvider(c.Param("provider_id"), u)
	if err != nil {
		s.writeStoreError(c, err, "Provider")
		return
	}
	s.log.Info("provider_updated", "provider_id", p.ID, "enabled", p.Enabled, "priority", p.Priority)
	writeJSON(c, http.StatusOK, p)
}

func (s *Server) listModels(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	enabled, ok := queryBool(c, "enabled")
	if !ok {
		return
	}
	items, total, q, err := s.store.ListModels(q, enabled)
	if err != nil {
		s.writeStoreError(c, err, "Model")
		return
	}
	writeJSON(c, http.StatusOK, pageOf(items, total, q))
}

func (s *Server) getModel(c *gin.Context) {
	m, err := s.store.GetModel(c.Param("model_id"))
	if err != nil {
		s.writeStoreError(c, err, "Model")
		return
	}
	writeJSON(c, http.StatusOK, m)
}

func (s *Server) adminListModels(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	enabled, ok := queryBool(c, "enabled")
	if !ok {
		return
	}
	items, total, q, err := s.store.ListModelAdmins(q, enabled)
	if err != nil {
		s.writeStoreError(c, err, "Model")
		return
	}
	writeJSON(c, http.StatusOK, pageOf(items, total, q))
}

func (s *Server) adminGetModel(c *gin.Context) {
	m, err := s.store.GetModelAdmin(c.Param("model_id"))
	if err != nil {
		s.writeStoreError(c, err, "Model")
		return
	}
	writeJSON(c, http.StatusOK, m)
}

func (s *Server) patchModel(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var u store.ModelUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		writeValidation(c, "Invalid model update", map[string]any{"reason": err.Error()})
		return
	}
	if _, err := s.store.UpdateModel(c.Param("model_id"), u); err != nil {
		s.writeStoreError(c, err, "Model")
		return
	}
	m, err := s.store.GetModelAdmin(c.Param("model_id"))
	if err != nil {
		s.writeStoreError(c, err, "Model")
		return
	}
	s.log.Info("model_updated", "model_id", m.ID, "enabled", m.Enabled)
	writeJSON(c, http.StatusOK, m)
}

type providerMapRequest struct {
	ProviderModelIDs []string `json:"provider_model_ids"`
}

func (s *Server) patchModelProviders(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req providerMapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidation(c, "Invalid provider mapping", map[string]any{"reason": err.Error()})
		return
	}
	m, err := s.store.SetProviderModelIDs(c.Param("model_id"), c.Param("provider_id"), req.ProviderModelIDs)
	if err != nil {
		s.writeStoreError(c, err, "Model or provider")
		return
	}
	writeJSON(c, http.StatusOK, m)
}
