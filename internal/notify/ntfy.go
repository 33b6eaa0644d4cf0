package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Ntfy posts to an ntfy topic; title, priority and tags travel as headers.
type Ntfy struct {
	URL    string
	Client *http.Client
}

func NewNtfy(server, topic string) *Ntfy {
	return &Ntfy{
		URL:    strings.TrimRight(server, "/") + "/" + topic,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Ntfy) Send(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, strings.NewReader(msg.Text))
	if err != nil {
		return fmt.Errorf("ntfy request: %w", err)
	}
	req.Header.Set("Title", msg.Title)
	p := msg.Priority
	if p == "" {
		p = PriorityDefault
	}
	req.Header.Set("Priority", string(p))
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy: HTTP %d", resp.StatusCode)
	}
	return nil
}
