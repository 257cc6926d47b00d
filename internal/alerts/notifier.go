package alerts

import (
	"context"

	"wardwatch/internal/types"
)

// Reason explains why a notification fired.
type Reason string

const (
	ReasonRaised    Reason = "raised"
	ReasonEscalated Reason = "escalated"
)

// Notification is a single outbound alert signal. Critical notifications
// take the high-priority path (sound and flash in a UI); warnings may be
// rendered quietly.
type Notification struct {
	Severity types.AlertSeverity `json:"severity"`
	Reason   Reason              `json:"reason"`
	Alert    types.Alert         `json:"alert"`
}

// Critical reports whether the notification should take the urgent path.
func (n Notification) Critical() bool {
	return n.Severity == types.AlertCritical
}

// Notifier delivers notifications. Implementations must not block for long:
// the engine calls Notify once per notification after each recompute.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// NoopNotifier discards notifications.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Notification) error { return nil }

// Stats summarizes one recompute for metrics.
type Stats struct {
	ActiveWarning  int
	ActiveCritical int
	Delta          Delta
	Duration       int64 // milliseconds
}

// Metrics records recompute outcomes.
type Metrics interface {
	RecordRecompute(ctx context.Context, s Stats)
}

// NoopMetrics discards recompute stats.
type NoopMetrics struct{}

func (NoopMetrics) RecordRecompute(context.Context, Stats) {}

var (
	_ Notifier = NoopNotifier{}
	_ Notifier = NotifierFunc(nil)
	_ Metrics  = NoopMetrics{}
)
