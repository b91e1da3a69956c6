package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrProviderDown = errors.New("notification provider down (simulated)")

// LogNotifier writes notifications to the structured log instead of a provider.
type LogNotifier struct {
	log   *slog.Logger
	sleep time.Duration
	fail  bool
}

type LogNotifierConfig struct {
	// Sleep simulates a slow provider.
	Sleep time.Duration
	// Fail simulates a provider outage.
	Fail bool
}

func NewLogNotifier(log *slog.Logger, cfg LogNotifierConfig) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log, sleep: cfg.Sleep, fail: cfg.Fail}
}

func (n *LogNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.email",
		"to", to,
		"subject", subject,
		"body_bytes", len(body),
	)
	return nil
}

func (n *LogNotifier) NotifyAdmins(ctx context.Context, event AdminEvent) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.admins",
		"kind", event.Kind,
		"request_id", event.RequestID,
		"role", event.Role,
		"department", event.Department,
	)
	return nil
}

func (n *LogNotifier) simulate(ctx context.Context) error {
	if n.sleep > 0 {
		select {
		case <-time.After(n.sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if n.fail {
		return ErrProviderDown
	}
	return nil
}
