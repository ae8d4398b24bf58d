package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// pushPayload is the body posted to the push endpoint.
type pushPayload struct {
	Text string `json:"text"`
}

// Broadcaster pushes a text message to the group through the chat platform's
// push endpoint.
type Broadcaster struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewBroadcaster creates a Broadcaster. An empty endpoint disables pushes.
func NewBroadcaster(endpoint, token string, timeout time.Duration) *Broadcaster {
	return &Broadcaster{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}
}

// Push sends one text message to the group.
func (b *Broadcaster) Push(ctx context.Context, text string) error {
	if b.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(pushPayload{Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
