// Package notify holds the outbound best-effort HTTP collaborators: the
// attendance recorder endpoint and the group push broadcaster.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// recordPayload is the body posted to the recorder endpoint.
type recordPayload struct {
	MemberID      string `json:"member_id"`
	Date          string `json:"date"`
	Duplicate     bool   `json:"duplicate,omitempty"`
	DuplicateWith string `json:"duplicate_with,omitempty"`
}

// Recorder forwards attendance records to the external recorder endpoint.
// Delivery is best-effort: the local ledger write is the source of truth and
// callers only log a failed notification.
type Recorder struct {
	endpoint string
	client   *http.Client
}

// NewRecorder creates a Recorder. An empty endpoint disables notifications.
func NewRecorder(endpoint string, timeout time.Duration) *Recorder {
	return &Recorder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Notify posts one attendance record. Returns an error on any non-2xx
// response or transport failure; callers treat it as non-fatal.
func (r *Recorder) Notify(ctx context.Context, memberID, date string, duplicate bool, duplicateWith string) error {
	if r.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(recordPayload{
		MemberID:      memberID,
		Date:          date,
		Duplicate:     duplicate,
		DuplicateWith: duplicateWith,
	})
	if err != nil {
		return fmt.Errorf("failed to encode record payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build record request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("record request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("recorder returned status %d", resp.StatusCode)
	}

	return nil
}
