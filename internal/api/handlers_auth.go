package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type tokenRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

func (s *Server) exchangeToken(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidation(c, "api_key is required", nil)
		return
	}
	tok, err := s.auth.Exchange(req.APIKey)
	if err != nil {
		writeUnauthorized(c, "Invalid API key")
		return
	}
	writeJSON(c, http.StatusOK, tok)
}

type clientEventsRequest struct {
	Events []map[string]any `json:"events" binding:"required"`
}

func (s *Server) recordClientEvents(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req clientEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidation(c, "events is required", nil)
		return
	}
	stored := s.store.RecordClientEvents(req.Events)
	writeJSON(c, http.StatusAccepted, gin.H{"count": len(stored), "events": stored})
}
