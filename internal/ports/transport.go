package ports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// Request is a single call against the Telldus API.
type Request struct {
	Method string
	Path   string
	Query  url.Values
}

// Transport issues requests against one Telldus backend (local or live).
// The cache and command layers depend only on this interface.
type Transport interface {
	Request(ctx context.Context, req Request) (json.RawMessage, error)
}

// ErrTokenRefresh is wrapped by the local transport when the bearer token
// could not be refreshed.
var ErrTokenRefresh = errors.New("telldus: token refresh failed")

// TransportError describes a failed request: network failure, a non-200
// status or a body that is not JSON.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("telldus %s %s: status %d: %v", e.Method, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("telldus %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
