package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cineflow/console/internal/auth"
	"cineflow/console/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxTraceID = "trace_id"
	ctxKeyID   = "key_id"
)

// TraceMiddleware echoes the caller's X-Trace-Id, or X-Request-Id, and mints a
// time-ordered id when neither is present.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader("X-Trace-Id"))
		if traceID == "" {
			traceID = strings.TrimSpace(c.GetHeader("X-Request-Id"))
		}
		if traceID == "" {
			traceID = newTraceID()
		}
		c.Set(ctxTraceID, traceID)
		c.Writer.Header().Set("X-Trace-Id", traceID)
		c.Next()
	}
}

func newTraceID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// RequestLogMiddleware logs one line per request. Probe and scrape routes log at
// debug, server errors at warn.
func RequestLogMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelWarn
		case route == "/healthz" || route == "/metrics" || route == "/api/v1/healthz":
			level = slog.LevelDebug
		}
		logger.Log(c.Request.Context(), level, "http_request",
			"trace_id", traceIDFromContext(c),
			"key_id", c.GetString(ctxKeyID),
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

// MetricsMiddleware labels requests by route template so ids do not explode the
// label space.
func MetricsMiddleware(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func AuthMiddleware(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if header == "" || !strings.HasPrefix(header, prefix) {
			writeUnauthorized(c, "Authentication required")
			c.Abort()
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
		claims, err := authSvc.ParseAccess(token)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Token expired"
			}
			writeUnauthorized(c, msg)
			c.Abort()
			return
		}
		c.Set(ctxKeyID, claims.KeyID)
		c.Next()
	}
}

func traceIDFromContext(c *gin.Context) string {
	return c.GetString(ctxTraceID)
}

// requireJSON lets requests without a Content-Type through.
func requireJSON(c *gin.Context) bool {
	if ct := c.ContentType(); ct == "" || ct == "application/json" {
		return true
	}
	writeError(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type must be application/json", false, nil)
	return false
}
