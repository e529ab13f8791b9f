package telldus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultTokenRefreshInterval = time.Hour

// LocalClient talks to a TellStick on the LAN with a bearer token. The token
// is refreshed at most once per interval, before the request that finds it
// due.
type LocalClient struct {
	base       string
	httpClient *http.Client
	interval   time.Duration
	now        func() time.Time
	logger     ports.Logger

	mu          sync.Mutex
	token       string
	lastRefresh time.Time

	group singleflight.Group
}

var _ ports.Transport = (*LocalClient)(nil)

type LocalOption func(*LocalClient)

func WithHTTPClient(hc *http.Client) LocalOption {
	return func(c *LocalClient) { c.httpClient = hc }
}

func WithClock(now func() time.Time) LocalOption {
	return func(c *LocalClient) { c.now = now }
}

func WithLogger(l ports.Logger) LocalOption {
	return func(c *LocalClient) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewLocalClient(cfg model.LocalTransportConfig, timeout time.Duration, opts ...LocalOption) *LocalClient {
	c := &LocalClient{
		base:       fmt.Sprintf("http://%s/api", cfg.Host),
		httpClient: &http.Client{Timeout: timeout},
		interval:   cfg.TokenRefreshInterval,
		now:        time.Now,
		logger:     ports.NopLogger{},
		token:      cfg.AccessToken,
	}
	if c.interval <= 0 {
		c.interval = DefaultTokenRefreshInterval
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LocalClient) Request(ctx context.Context, req ports.Request) (json.RawMessage, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}
	token := c.currentToken()
	return do(ctx, c.httpClient, c.base, req, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
}

func (c *LocalClient) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *LocalClient) refreshDue() bool {
	return c.lastRefresh.IsZero() || c.now().Sub(c.lastRefresh) >= c.interval
}

// ensureToken refreshes the token when the interval has elapsed. The
// refresh time is stamped when the call returns, whatever its outcome, so a
// failed refresh is not retried until the next interval. Requests arriving
// while a refresh is in flight wait for it.
func (c *LocalClient) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	due := c.refreshDue()
	c.mu.Unlock()
	if !due {
		return nil
	}

	// The refresh is shared, so it must not die with the caller that
	// started it.
	ch := c.group.DoChan("refresh", func() (any, error) {
		c.mu.Lock()
		if !c.refreshDue() {
			c.mu.Unlock()
			return nil, nil
		}
		token := c.token
		c.mu.Unlock()

		err := c.refreshToken(context.WithoutCancel(ctx), token)

		c.mu.Lock()
		c.lastRefresh = c.now()
		c.mu.Unlock()
		return nil, err
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type refreshResponse struct {
	Expires int64  `json:"expires"`
	Token   string `json:"token"`
	Error   string `json:"error"`
}

func (c *LocalClient) refreshToken(ctx context.Context, token string) error {
	req := ports.Request{
		Method: http.MethodGet,
		Path:   "/refreshToken",
		Query:  url.Values{"token": {token}},
	}
	raw, err := do(ctx, c.httpClient, c.base, req, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ports.ErrTokenRefresh, err)
	}

	var body refreshResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ports.ErrTokenRefresh, err)
	}
	if body.Expires == 0 {
		return fmt.Errorf("%w: %s", ports.ErrTokenRefresh, body.Error)
	}

	if body.Token != "" {
		c.mu.Lock()
		c.token = body.Token
		c.mu.Unlock()
	}
	c.logger.Debug("access token refreshed", "expires", time.Unix(body.Expires, 0).UTC())
	return nil
}
