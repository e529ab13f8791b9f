package telldus

import (
	"context"
	"encoding/json"
	"net/http"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
	"time"

	"github.com/dghubble/oauth1"
)

const DefaultLiveBaseURL = "https://pa-api.telldus.com/json"

// LiveClient talks to Telldus Live. Every request is signed with OAuth1
// HMAC-SHA1 using the consumer key pair and the access token pair.
type LiveClient struct {
	base       string
	httpClient *http.Client
}

var _ ports.Transport = (*LiveClient)(nil)

// NewLiveClient builds a signing client. base, if non-nil, is the client the
// signed requests are sent through.
func NewLiveClient(cfg model.LiveTransportConfig, timeout time.Duration, base *http.Client) *LiveClient {
	if base == nil {
		base = &http.Client{}
	}
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)

	config := oauth1.NewConfig(cfg.PublicKey, cfg.PrivateKey)
	hc := config.Client(ctx, oauth1.NewToken(cfg.Token, cfg.TokenSecret))
	hc.Timeout = timeout

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultLiveBaseURL
	}
	return &LiveClient{base: baseURL, httpClient: hc}
}

func (c *LiveClient) Request(ctx context.Context, req ports.Request) (json.RawMessage, error) {
	return do(ctx, c.httpClient, c.base, req, nil)
}
