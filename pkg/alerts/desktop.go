package alerts

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

// DesktopNotifier shows alerts as local desktop notifications.
type DesktopNotifier struct {
	minLevel model.Level
	notify   func(title, message string) error
}

// NewDesktopNotifier creates a desktop notifier for alerts at or above minLevel.
func NewDesktopNotifier(minLevel model.Level) *DesktopNotifier {
	return &DesktopNotifier{
		minLevel: minLevel,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

func (d *DesktopNotifier) Name() string { return "desktop" }

func (d *DesktopNotifier) Send(ctx context.Context, n Notification) error {
	if n.Severity().Rank() < d.minLevel.Rank() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.notify(title(n), n.Alert.Message); err != nil {
		return fmt.Errorf("show desktop notification: %w", err)
	}
	return nil
}
