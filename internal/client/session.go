package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

const (
	DefaultUID       = "Unknown"
	DefaultBrowserID = "random_browser_id"
)

// Identity is issued by the session endpoint once per worker.
type Identity struct {
	UID       string
	BrowserID string
}

type sessionEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type SessionClient struct {
	url       string
	transport Transport
}

func NewSessionClient(url string, t Transport) *SessionClient {
	return &SessionClient{url: url, transport: t}
}

// Establish opens a session for token. The HTTP status is not checked; the
// body alone decides whether the session is usable.
func (c *SessionClient) Establish(ctx context.Context, token string) (Identity, error) {
	resp, err := c.transport.Post(ctx, c.url, token, nil)
	if err != nil {
		return Identity{}, &SessionError{Err: err}
	}
	id, err := parseIdentity(resp.Body)
	if err != nil {
		return Identity{}, &SessionError{StatusCode: resp.StatusCode, Err: err}
	}
	return id, nil
}

func parseIdentity(body []byte) (Identity, error) {
	var env sessionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Identity{}, fmt.Errorf("decode response: %w (body: %s)", err, sample(body))
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return Identity{}, ErrMissingData
	}

	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return Identity{}, fmt.Errorf("decode data: %w", err)
	}
	return Identity{
		UID:       stringField(data, "uid", DefaultUID),
		BrowserID: stringField(data, "browser_id", DefaultBrowserID),
	}, nil
}

func stringField(m map[string]any, key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	}
	return fmt.Sprint(v)
}

func sample(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
