package client

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/yourneighborhoodchef/nodekeeper/internal/config"
	"github.com/yourneighborhoodchef/nodekeeper/internal/headers"
	"github.com/yourneighborhoodchef/nodekeeper/internal/proxy"
)

// RestyTransport uses the standard library TLS stack through resty.
type RestyTransport struct {
	client    *resty.Client
	ProxyURL  string
	userAgent string
}

func NewRestyTransport(cfg config.Config, b *proxy.Binding) *RestyTransport {
	c := resty.New().SetTimeout(cfg.RequestTimeout)
	proxyURL := b.URL()
	if proxyURL != "" {
		c.SetProxy(proxyURL)
	}
	return &RestyTransport{client: c, ProxyURL: proxyURL, userAgent: cfg.UserAgent}
}

func (t *RestyTransport) Post(ctx context.Context, url, token string, body []byte) (*Response, error) {
	req := t.client.R().
		SetContext(ctx).
		SetHeaders(headers.Map(token, t.userAgent))
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(url)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}
