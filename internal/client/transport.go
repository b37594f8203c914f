package client

import (
	"context"
	"fmt"

	"github.com/yourneighborhoodchef/nodekeeper/internal/config"
	"github.com/yourneighborhoodchef/nodekeeper/internal/proxy"
)

type Response struct {
	StatusCode int
	Body       []byte
}

// Transport sends one authenticated JSON POST. A nil body sends no payload.
// Implementations are bound to at most one proxy for their whole lifetime.
type Transport interface {
	Post(ctx context.Context, url, token string, body []byte) (*Response, error)
}

// Factory builds the transport for one worker. b is nil for proxy-less
// workers.
type Factory func(b *proxy.Binding) (Transport, error)

func NewFactory(cfg config.Config) (Factory, error) {
	switch cfg.Client {
	case config.ClientTLS, "":
		return func(b *proxy.Binding) (Transport, error) {
			return NewTLSTransport(cfg, b)
		}, nil
	case config.ClientStandard:
		return func(b *proxy.Binding) (Transport, error) {
			return NewRestyTransport(cfg, b), nil
		}, nil
	}
	return nil, fmt.Errorf("unknown client %q", cfg.Client)
}
