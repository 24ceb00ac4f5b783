package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// NetworkError is returned when no response was received, including when
// the request deadline elapsed.
type NetworkError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: backend did not respond in time", e.Op)
	}
	return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when a 2xx response cannot be understood.
type ProtocolError struct {
	Op          string
	Status      int
	ContentType string
	Err         error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: unexpected response (status %d, %s): %v", e.Op, e.Status, e.ContentType, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx response. Message is what the backend reported,
// suitable for showing to the user.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// newHTTPError extracts the message from an error body. The fields error,
// message and details are tried in that order.
func newHTTPError(status int, body []byte) *HTTPError {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range []string{"error", "message", "details"} {
			if msg := messageFrom(fields[key]); msg != "" {
				return &HTTPError{Status: status, Message: msg}
			}
		}
	}
	return &HTTPError{
		Status:  status,
		Message: fmt.Sprintf("Error %d: %s", status, http.StatusText(status)),
	}
}

func messageFrom(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	// details may be an object or list; show it as compact JSON
	return strings.TrimSpace(string(raw))
}
