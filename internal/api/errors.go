package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies transport failures
type Kind string

const (
	KindNetwork Kind = "NETWORK"
	KindHTTP    Kind = "HTTP"
	KindParse   Kind = "PARSE"
	KindTimeout Kind = "TIMEOUT"
	KindConfig  Kind = "CONFIG"
	KindUnknown Kind = "UNKNOWN"
)

// Error is returned by every Client call that fails
type Error struct {
	Kind   Kind
	Method string
	Path   string
	Status int    // HTTP status, KindHTTP only
	Body   []byte // raw error body, KindHTTP only
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error", strings.ToLower(string(e.Kind)))
	if e.Method != "" {
		fmt.Fprintf(&b, " on %s %s", e.Method, e.Path)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if msg := e.serverMessage(); msg != "" {
		fmt.Fprintf(&b, ": %s", msg)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// serverMessage extracts a human message from an HTTP error body
func (e *Error) serverMessage() string {
	if len(e.Body) == 0 {
		return ""
	}
	var body struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	if s, ok := body.Detail.(string); ok && s != "" {
		return s
	}
	if body.Message != "" {
		return body.Message
	}
	switch v := body.Error.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v["message"].(string); ok {
			return s
		}
	}
	return ""
}

// ErrNoBaseURL is wrapped by KindConfig errors
var ErrNoBaseURL = errors.New("backend base URL is not configured")

// KindOf returns the kind of a transport error, or KindUnknown
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// UserMessage renders err for display in the UI
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return "Something went wrong. Please try again."
	}
	switch apiErr.Kind {
	case KindConfig:
		return "Setup problem: no backend URL is configured. Set base_url in stride.yml or STRIDE_BASE_URL."
	case KindNetwork:
		return "Could not reach the server. Check your connection and try again."
	case KindTimeout:
		return "The server took too long to respond."
	case KindHTTP:
		if msg := apiErr.serverMessage(); msg != "" {
			return msg
		}
		return fmt.Sprintf("The server returned an error (%d).", apiErr.Status)
	case KindParse:
		return "The server sent a response that could not be read."
	default:
		return "Something went wrong. Please try again."
	}
}

// classify wraps a low-level failure from http.Client.Do
func classify(method, path string, err error) *Error {
	kind := KindNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindUnknown
	}
	return &Error{Kind: kind, Method: method, Path: path, Err: err}
}
