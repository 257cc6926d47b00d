package webhook

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"wardwatch/internal/alerts"
	"wardwatch/internal/types"
)

// maxResponseBody bounds how much of a receiver's reply is read for
// soft-failure detection.
const maxResponseBody = 4 << 10

// Doer sends a request. Satisfied by *external.BaseClient, which adds
// retries and a circuit breaker, and by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes one webhook endpoint.
type Config struct {
	URL string
	// Platform overrides URL-based detection when set.
	Platform Platform
	Signer   Signer
}

// Notifier posts every notification to a single endpoint.
type Notifier struct {
	client    Doer
	url       string
	platform  Platform
	formatter Formatter
	signer    Signer
	clock     types.Clock
	logger    types.Logger
}

var _ alerts.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier for cfg. An empty secret sends unsigned
// payloads.
func NewNotifier(client Doer, cfg Config, clock types.Clock, logger types.Logger) *Notifier {
	platform := cfg.Platform
	if platform == "" {
		platform = DetectPlatform(cfg.URL)
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = types.NewSlogLogger(nil)
	}
	return &Notifier{
		client:    client,
		url:       cfg.URL,
		platform:  platform,
		formatter: formatterFor(platform),
		signer:    cfg.Signer,
		clock:     clock,
		logger:    logger,
	}
}

// Platform returns the payload schema in use.
func (w *Notifier) Platform() Platform { return w.platform }

// Notify formats, signs and posts n. Delivery failures are returned as
// upstream_notifier_unavailable; the alert engine logs them and moves on.
func (w *Notifier) Notify(ctx context.Context, n alerts.Notification) error {
	now := w.clock.Now()
	payload, err := w.formatter.Format(n, now)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "formatting webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "building webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-WardWatch-Event", "outbreak_alert")
	if w.signer.Secret != "" {
		sig, err := w.signer.Sign(payload, now)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalUnexpected, "signing webhook payload", err)
		}
		req.Header.Set(SignatureHeader, sig)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamNotifier, "webhook delivery failed", err,
			map[string]any{"alert_id": n.Alert.ID, "platform": string(w.platform)})
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err := w.formatter.ValidateResponse(resp.StatusCode, body); err != nil {
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamNotifier, "webhook rejected notification", err,
			map[string]any{"alert_id": n.Alert.ID, "status": resp.StatusCode})
	}

	w.logger.Info("webhook notification delivered",
		"alert_id", n.Alert.ID,
		"severity", n.Severity,
		"platform", w.platform,
		"status", resp.StatusCode,
	)
	return nil
}
