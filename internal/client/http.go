package client

import (
	"bytes"
	"context"
	"io"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/yourneighborhoodchef/nodekeeper/internal/config"
	"github.com/yourneighborhoodchef/nodekeeper/internal/headers"
	"github.com/yourneighborhoodchef/nodekeeper/internal/proxy"
)

// TLSTransport presents a Chrome TLS fingerprint. It is the default
// transport.
type TLSTransport struct {
	client    tls_client.HttpClient
	ProxyURL  string
	userAgent string
}

func NewTLSTransport(cfg config.Config, b *proxy.Binding) (*TLSTransport, error) {
	jar := tls_client.NewCookieJar()
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutMilliseconds(int(cfg.RequestTimeout.Milliseconds())),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithCookieJar(jar),
	}

	proxyURL := b.URL()
	if proxyURL != "" {
		options = append(options, tls_client.WithProxyUrl(proxyURL))
	}

	c, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, err
	}
	return &TLSTransport{client: c, ProxyURL: proxyURL, userAgent: cfg.UserAgent}, nil
}

func (t *TLSTransport) Post(ctx context.Context, url, token string, body []byte) (*Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, rd)
	if err != nil {
		return nil, err
	}
	req.Header = headers.Build(token, t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
