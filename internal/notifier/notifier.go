// Package notifier provides report delivery channel implementations.
package notifier

import (
	"context"
	"fmt"

	"github.com/warehouselens/warehouse-sentinel/internal/config"
	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// Notifier is the interface for delivering analysis reports to a channel.
type Notifier interface {
	// Send delivers the report to the channel.
	Send(ctx context.Context, report *model.Report) error

	// Name returns the name of the notifier.
	Name() string
}

// New creates the notifier selected by the configuration.
func New(cfg *config.Config) (Notifier, error) {
	switch cfg.Notifier.Type {
	case "console":
		return NewConsoleNotifier(cfg.Costs), nil
	case "webhook":
		return NewWebhookNotifier(&cfg.Notifier, cfg.Costs)
	default:
		return nil, fmt.Errorf("unknown notifier type: %s", cfg.Notifier.Type)
	}
}
