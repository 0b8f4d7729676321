package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	Status  int
	Message string
	Code    string
	Details any
	TraceID string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// parseError reads {message, code, details} from the top level of body, or from an
// object nested under "detail" or "error". A body that is not JSON becomes the message.
func parseError(status int, body []byte, traceID string) *APIError {
	apiErr := &APIError{Status: status, TraceID: traceID}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		apiErr.Message = fallbackMessage(status)
		return apiErr
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		apiErr.Message = string(body)
		return apiErr
	}

	payload := top
	for _, key := range []string{"detail", "error"} {
		raw, ok := top[key]
		if !ok {
			continue
		}
		var nested map[string]json.RawMessage
		if json.Unmarshal(raw, &nested) == nil {
			payload = nested
			break
		}
		var text string
		if json.Unmarshal(raw, &text) == nil && apiErr.Message == "" {
			apiErr.Message = text
		}
	}

	if msg := stringField(payload, "message"); msg != "" {
		apiErr.Message = msg
	}
	apiErr.Code = stringField(payload, "code")
	if raw, ok := payload["details"]; ok {
		var details any
		if json.Unmarshal(raw, &details) == nil {
			apiErr.Details = details
		}
	}
	if apiErr.TraceID == "" {
		apiErr.TraceID = stringField(top, "trace_id")
	}
	if strings.TrimSpace(apiErr.Message) == "" {
		apiErr.Message = fallbackMessage(status)
	}
	return apiErr
}

func stringField(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func fallbackMessage(status int) string {
	return fmt.Sprintf("request failed with %d", status)
}
