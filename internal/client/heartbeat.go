package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Payload struct {
	ID        string `json:"id"`
	BrowserID string `json:"browser_id"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

func NewPayload(id Identity, version string, now time.Time) Payload {
	return Payload{
		ID:        id.UID,
		BrowserID: id.BrowserID,
		Timestamp: now.Unix(),
		Version:   version,
	}
}

type HeartbeatClient struct {
	url       string
	version   string
	transport Transport
	now       func() time.Time
}

func NewHeartbeatClient(url, version string, t Transport) *HeartbeatClient {
	return &HeartbeatClient{url: url, version: version, transport: t, now: time.Now}
}

// Ping sends one heartbeat. Only a 200 counts as success; every failure is
// returned as a *HeartbeatError.
func (c *HeartbeatClient) Ping(ctx context.Context, id Identity, token string) error {
	body, err := json.Marshal(NewPayload(id, c.version, c.now()))
	if err != nil {
		return &HeartbeatError{Err: err}
	}
	resp, err := c.transport.Post(ctx, c.url, token, body)
	if err != nil {
		return &HeartbeatError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &HeartbeatError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrUnexpectedStatus, sample(resp.Body)),
		}
	}
	return nil
}
