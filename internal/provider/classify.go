package provider

import (
	"strings"

	"cineflow/console/internal/model"
)

type category struct {
	code      model.TaskErrorCode
	tokens    []string
	retryable bool
}

// categories are matched in order against the lower-cased provider message.
var categories = []category{
	{model.ErrContentPolicy, []string{"content", "policy", "violation", "safety", "nudity", "sexual"}, false},
	{model.ErrValidation, []string{"validation", "schema_error", "schema error", "parameter", "bad request", "prompt text cannot be empty"}, false},
	{model.ErrRateLimited, []string{"rate limit", "rate_limited", "too many requests", "429"}, true},
	{model.ErrTimeout, []string{"timeout", "timed out"}, true},
	{model.ErrQuotaExceeded, []string{"quota", "insufficient", "balance"}, true},
	{model.ErrUnauthorized, []string{"unauthorized", "invalid api key", "api key", "401"}, true},
	{model.ErrForbidden, []string{"forbidden", "403"}, true},
	{model.ErrDependency, []string{"dependency", "overloaded"}, true},
	{model.ErrServer, []string{"server error", "service unavailable", "502", "503", "504"}, true},
}

// ClassifyError maps a free-form provider failure message to a task error code and
// whether a retry may succeed.
func ClassifyError(msg string) (model.TaskErrorCode, bool) {
	normalized := strings.ToLower(strings.TrimSpace(msg))
	if normalized == "" {
		return model.ErrUnknown, false
	}
	for _, c := range categories {
		for _, token := range c.tokens {
			if strings.Contains(normalized, token) {
				return c.code, c.retryable
			}
		}
	}
	return model.ErrUnknown, false
}
