// Package pushclient delivers reporter data to the collector.
package pushclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hamed0406/linkwatch/internal/domain"
)

// Client posts to the collector API. Every call is bounded by the
// client timeout and a timed-out call is a failed one.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type heartbeatBody struct {
	BootID        string  `json:"boot_id"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	SentAt        string  `json:"sent_at"`
}

func (c *Client) Heartbeat(ctx context.Context, bootID string, uptimeSeconds float64) error {
	return c.post(ctx, "/api/heartbeat", heartbeatBody{
		BootID:        bootID,
		UptimeSeconds: uptimeSeconds,
		SentAt:        time.Now().UTC().Format(time.RFC3339),
	})
}

type outageBody struct {
	ID string `json:"id,omitempty"`
	domain.OutageReport
}

func (c *Client) OutageReport(ctx context.Context, id string, r domain.OutageReport) error {
	return c.post(ctx, "/api/outage", outageBody{ID: id, OutageReport: r})
}

func (c *Client) Event(ctx context.Context, e domain.Event) error {
	return c.post(ctx, "/api/events", e)
}

// Deliver sends one outbox item.
func (c *Client) Deliver(ctx context.Context, it Item) error {
	switch {
	case it.Event != nil:
		return c.Event(ctx, *it.Event)
	case it.Outage != nil:
		return c.OutageReport(ctx, it.ID, *it.Outage)
	}
	return fmt.Errorf("empty outbox item %s", it.ID)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("post %s: HTTP %d", path, resp.StatusCode)
	}
	return nil
}
