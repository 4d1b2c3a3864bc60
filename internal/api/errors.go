package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMalformedResponse marks a response body that did not have the expected shape.
var ErrMalformedResponse = errors.New("malformed response")

// Error is returned for every failed call. Status is 0 for transport failures.
type Error struct {
	Method  string
	Path    string
	Status  int
	Payload any // parsed JSON error body, or the raw text
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.Path)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newStatusError(method, path string, status int, raw []byte, isJSON bool) *Error {
	e := &Error{Method: method, Path: path, Status: status}
	if len(raw) == 0 {
		e.Message = http.StatusText(status)
		return e
	}
	if isJSON {
		var payload any
		if err := json.Unmarshal(raw, &payload); err == nil {
			e.Payload = payload
			e.Message = messageFromPayload(payload)
		}
	}
	if e.Payload == nil {
		text := strings.TrimSpace(string(raw))
		e.Payload = text
		e.Message = text
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func messageFromPayload(payload any) string {
	m, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Category groups failures the way callers branch on them.
type Category int

const (
	CategoryNone Category = iota
	CategoryTransport
	CategoryUnauthorized
	CategoryForbidden
	CategoryNotFound
	CategoryMalformed
	CategoryFailure
)

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryTransport:
		return "transport"
	case CategoryUnauthorized:
		return "unauthorized"
	case CategoryForbidden:
		return "forbidden"
	case CategoryNotFound:
		return "not_found"
	case CategoryMalformed:
		return "malformed"
	default:
		return "failure"
	}
}

// Classify maps an error returned by the client to a Category.
func Classify(err error) Category {
	if err == nil {
		return CategoryNone
	}
	if errors.Is(err, ErrMalformedResponse) {
		return CategoryMalformed
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return CategoryFailure
	}
	switch apiErr.Status {
	case 0:
		return CategoryTransport
	case http.StatusUnauthorized:
		return CategoryUnauthorized
	case http.StatusForbidden:
		return CategoryForbidden
	case http.StatusNotFound:
		return CategoryNotFound
	default:
		return CategoryFailure
	}
}

// IsUnauthorized reports a 401 response.
func IsUnauthorized(err error) bool { return Classify(err) == CategoryUnauthorized }

// IsForbidden reports a 403 response.
func IsForbidden(err error) bool { return Classify(err) == CategoryForbidden }

// IsNotFound reports a 404 response.
func IsNotFound(err error) bool { return Classify(err) == CategoryNotFound }

// UserMessage turns an error into the text shown to the user.
func UserMessage(err error) string {
	switch Classify(err) {
	case CategoryNone:
		return ""
	case CategoryUnauthorized:
		return "Your session has expired. Please log in again (omr login)."
	case CategoryForbidden:
		return "You do not have access to this resource."
	case CategoryNotFound:
		return "The requested item was not found."
	case CategoryTransport:
		return "Could not reach the server. Check your connection and try again."
	case CategoryMalformed:
		return "The server returned an unexpected response."
	default:
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			return err.Error()
		}
		if apiErr.Message != "" {
			return "Request failed: " + apiErr.Message
		}
		return "Request failed: " + apiErr.Error()
	}
}
