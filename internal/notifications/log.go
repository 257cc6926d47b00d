package notifications

import (
	"context"
	"errors"

	"wardwatch/internal/alerts"
	"wardwatch/internal/types"
)

// LogNotifier writes notifications to the structured log. Critical alerts
// are logged at error level so they stand out in log-based alerting.
type LogNotifier struct {
	logger types.Logger
}

var _ alerts.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger types.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n alerts.Notification) error {
	args := []any{
		"alert_id", n.Alert.ID,
		"ward_id", n.Alert.WardID,
		"disease", n.Alert.Disease,
		"severity", n.Severity,
		"reason", n.Reason,
		"count", n.Alert.Count,
		"rate_per_100k", n.Alert.Rate,
	}
	if n.Critical() {
		l.logger.Error("CRITICAL outbreak alert: "+n.Alert.Message, args...)
		return nil
	}
	l.logger.Warn("outbreak alert: "+n.Alert.Message, args...)
	return nil
}

// Fanout delivers each notification to every notifier in order. All
// notifiers are attempted; their errors are joined.
type Fanout []alerts.Notifier

var _ alerts.Notifier = Fanout(nil)

func (f Fanout) Notify(ctx context.Context, n alerts.Notification) error {
	var errs []error
	for _, notifier := range f {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
