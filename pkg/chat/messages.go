package chat

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// WarningPrefix marks assistant turns that report a failure.
const WarningPrefix = "⚠️ "

const (
	msgOverloaded   = "The model is currently overloaded. Please try again in a few moments."
	msgTimeout      = "Request timed out. The server might be busy."
	msgConnection   = "Connection error. Please check if the API server is running."
	msgBadFormat    = "Invalid response format from the server."
	msgNoResponse   = "No response received from the model."
	msgNoSession    = "No active session. Please create a session first."
	msgCreateFailed = "Failed to create session: "
)

// Describe maps a failed turn to the text shown to the user.
func Describe(err error) string {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		if reqErr.StatusCode == http.StatusServiceUnavailable {
			return msgOverloaded
		}
		return fmt.Sprintf("API Error: %d - %s", reqErr.StatusCode, reason(reqErr))
	case errors.Is(err, ErrTimeout):
		return msgTimeout
	case errors.Is(err, ErrConnection):
		return msgConnection
	case errors.Is(err, ErrDecodeResponse):
		return msgBadFormat
	case errors.Is(err, ErrNoResponse):
		return msgNoResponse
	case errors.Is(err, ErrNoSession):
		return msgNoSession
	default:
		return fmt.Sprintf("Unexpected error: %v", err)
	}
}

// reason is the standard phrase for the status code, or the phrase the
// server sent for codes without one.
func reason(e *RequestError) string {
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(e.Status, strconv.Itoa(e.StatusCode)))
}

// IsWarning reports whether content is a failure turn.
func IsWarning(content string) bool {
	return strings.HasPrefix(content, "⚠️")
}
