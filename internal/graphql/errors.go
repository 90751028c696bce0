package graphql

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorEntry is one element of a GraphQL "errors" array.
type ErrorEntry struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Path    []any  `json:"path,omitempty"`
}

// RemoteAPIError reports that GitHub answered with one or more structured errors.
type RemoteAPIError struct {
	Errors []ErrorEntry
}

func (e *RemoteAPIError) Error() string {
	if e == nil {
		return ""
	}
	return "github graphql api error: " + strings.Join(e.Messages(), "\n")
}

// Messages returns the message of every error entry in order.
func (e *RemoteAPIError) Messages() []string {
	out := make([]string, 0, len(e.Errors))
	for _, entry := range e.Errors {
		out = append(out, entry.Message)
	}
	return out
}

// HasType reports whether any entry carries the given GitHub error type
// (NOT_FOUND, FORBIDDEN, RATE_LIMITED, ...).
func (e *RemoteAPIError) HasType(kind string) bool {
	for _, entry := range e.Errors {
		if strings.EqualFold(entry.Type, kind) {
			return true
		}
	}
	return false
}

// TransportError reports a network failure, a non-2xx status, or an
// undecodable response. StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("github graphql transport error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("github graphql transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err means the token was rejected or lacks
// permission for the operation.
func IsUnauthorized(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.StatusCode == http.StatusUnauthorized || transportErr.StatusCode == http.StatusForbidden
	}
	var remoteErr *RemoteAPIError
	if errors.As(err, &remoteErr) {
		return remoteErr.HasType("FORBIDDEN") || remoteErr.HasType("INSUFFICIENT_SCOPES")
	}
	return false
}

// IsNotFound reports whether GitHub could not resolve a referenced entity.
func IsNotFound(err error) bool {
	var remoteErr *RemoteAPIError
	return errors.As(err, &remoteErr) && remoteErr.HasType("NOT_FOUND")
}
