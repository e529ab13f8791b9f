// Package telldus implements ports.Transport against the Telldus API, either
// on a TellStick on the local network or through the Telldus Live cloud.
package telldus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
)

// maxErrorBody caps how much of a failed response ends up in an error.
const maxErrorBody = 256

var errInvalidJSON = errors.New("response is not valid JSON")

func buildURL(base string, req ports.Request) string {
	u := strings.TrimSuffix(base, "/") + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

// do performs req and returns its body when the status is 200 and the body
// is JSON. decorate may add auth headers.
func do(ctx context.Context, hc *http.Client, base string, req ports.Request, decorate func(*http.Request)) (json.RawMessage, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	fail := func(status int, err error) error {
		return &ports.TransportError{Method: method, Path: req.Path, StatusCode: status, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, buildURL(base, req), nil)
	if err != nil {
		return nil, fail(0, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if decorate != nil {
		decorate(httpReq)
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("reading body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status: %s", strings.TrimSpace(snippet)))
	}

	if !json.Valid(body) {
		return nil, fail(resp.StatusCode, errInvalidJSON)
	}
	return json.RawMessage(body), nil
}

// New returns the transport selected by cfg.Mode.
func New(cfg model.TransportConfig, logger ports.Logger) (ports.Transport, error) {
	switch cfg.Mode {
	case model.TransportLocal:
		return NewLocalClient(cfg.Local, cfg.Timeout, WithLogger(logger)), nil
	case model.TransportLive:
		return NewLiveClient(cfg.Live, cfg.Timeout, nil), nil
	default:
		return nil, fmt.Errorf("unknown transport mode %q", cfg.Mode)
	}
}
