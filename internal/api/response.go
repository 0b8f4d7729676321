package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cineflow/console/internal/job"
	"cineflow/console/internal/model"
	"cineflow/console/internal/store"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// writeJSON writes body as is; collection and entity responses are not wrapped.
func writeJSON(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func writeError(c *gin.Context, status int, code, message string, retryable bool, details map[string]any) {
	c.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			Retryable: retryable,
			Details:   details,
		},
		"trace_id": traceIDFromContext(c),
	})
}

func writeUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	writeError(c, http.StatusUnauthorized, "unauthorized", message, false, nil)
}

func writeValidation(c *gin.Context, message string, details map[string]any) {
	writeError(c, http.StatusBadRequest, "validation_error", message, false, details)
}

// writeStoreError maps store and executor errors to responses. what names the entity
// in not-found messages.
func (s *Server) writeStoreError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", what+" not found", false, nil)
	case errors.Is(err, store.ErrBadRequest):
		writeValidation(c, strings.TrimPrefix(err.Error(), store.ErrBadRequest.Error()+": "), nil)
	case errors.Is(err, store.ErrConflict):
		writeError(c, http.StatusConflict, "conflict", strings.TrimPrefix(err.Error(), store.ErrConflict.Error()+": "), false, nil)
	case errors.Is(err, job.ErrTooManyActiveRuns):
		writeError(c, http.StatusTooManyRequests, "rate_limited", "Too many active runs", true, nil)
	default:
		s.log.Error("request_failed", "trace_id", traceIDFromContext(c), "path", c.FullPath(), "error", err)
		writeError(c, http.StatusInternalServerError, "internal_error", "Internal error", true, nil)
	}
}

// parseListQuery reads page, page_size, sort and order. It writes a 400 and returns
// false on malformed numbers.
func parseListQuery(c *gin.Context) (store.ListQuery, bool) {
	q := store.ListQuery{Sort: c.Query("sort"), Order: c.Query("order")}
	var ok bool
	if q.Page, ok = queryInt(c, "page", 1); !ok {
		return q, false
	}
	if q.PageSize, ok = queryInt(c, "page_size", 20); !ok {
		return q, false
	}
	return q, true
}

func queryInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeValidation(c, key+" must be an integer", map[string]any{"value": raw})
		return 0, false
	}
	return v, true
}

func queryIntPtr(c *gin.Context, key string) (*int, bool) {
	if strings.TrimSpace(c.Query(key)) == "" {
		return nil, true
	}
	v, ok := queryInt(c, key, 0)
	if !ok {
		return nil, false
	}
	return &v, true
}

func queryBool(c *gin.Context, key string) (*bool, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		writeValidation(c, key+" must be a boolean", map[string]any{"value": raw})
		return nil, false
	}
	return &v, true
}

func pageOf[T any](items []T, total int, q store.ListQuery) model.Page[T] {
	return model.Page[T]{Items: items, Page: q.Page, PageSize: q.PageSize, Total: total}
}
