package messaging

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher is an interface to publish messages
type Publisher interface {
	Publish(ctx context.Context, data ...[]byte) error
}

// Status of a run
const (
	StatusDone   = "DONE"
	StatusFailed = "FAILED"
)

// Notification is published at the end of a run
type Notification struct {
	Status string `json:"status"`
	DryRun bool   `json:"dry_run"`
	// Result is the uri of the FeatureCollection
	Result   string   `json:"result,omitempty"`
	Features []string `json:"features,omitempty"`
	Error    string   `json:"error,omitempty"`
	ExitCode int      `json:"exit_code"`
}

// Notify publishes the notification as json
func Notify(ctx context.Context, p Publisher, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if err := p.Publish(ctx, data); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}
