package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"wardwatch/internal/alerts"
	"wardwatch/internal/types"
)

// Platform selects the payload schema.
type Platform string

const (
	PlatformGeneric Platform = "generic"
	PlatformSlack   Platform = "slack"
)

// DetectPlatform inspects the URL. Anything that is not a Slack incoming
// webhook gets the generic schema.
func DetectPlatform(url string) Platform {
	if strings.Contains(strings.ToLower(url), "hooks.slack.com") {
		return PlatformSlack
	}
	return PlatformGeneric
}

// Formatter renders a notification for one platform.
type Formatter interface {
	Format(n alerts.Notification, sentAt time.Time) ([]byte, error)
	// ValidateResponse catches soft failures where the platform answers 2xx
	// with an error body.
	ValidateResponse(statusCode int, body []byte) error
}

func formatterFor(p Platform) Formatter {
	if p == PlatformSlack {
		return SlackFormatter{}
	}
	return GenericFormatter{}
}

// GenericPayload is the schema posted to non-Slack receivers.
type GenericPayload struct {
	Event    string              `json:"event"`
	Severity types.AlertSeverity `json:"severity"`
	Reason   alerts.Reason       `json:"reason"`
	Urgent   bool                `json:"urgent"`
	Alert    types.Alert         `json:"alert"`
	SentAt   time.Time           `json:"sent_at"`
}

type GenericFormatter struct{}

func (GenericFormatter) Format(n alerts.Notification, sentAt time.Time) ([]byte, error) {
	return json.Marshal(GenericPayload{
		Event:    "outbreak_alert",
		Severity: n.Severity,
		Reason:   n.Reason,
		Urgent:   n.Critical(),
		Alert:    n.Alert,
		SentAt:   sentAt.UTC(),
	})
}

func (GenericFormatter) ValidateResponse(statusCode int, _ []byte) error {
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", statusCode)
	}
	return nil
}

// SlackPayload is a Block Kit message.
type SlackPayload struct {
	Text   string       `json:"text"`
	Blocks []SlackBlock `json:"blocks"`
}

type SlackBlock struct {
	Type     string       `json:"type"`
	Text     *SlackText   `json:"text,omitempty"`
	Fields   []*SlackText `json:"fields,omitempty"`
	Elements []*SlackText `json:"elements,omitempty"`
}

type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type SlackFormatter struct{}

func (SlackFormatter) Format(n alerts.Notification, sentAt time.Time) ([]byte, error) {
	a := n.Alert
	title := fmt.Sprintf("%s %s alert: %s", strings.ToUpper(string(n.Severity)), a.Disease, a.WardName)

	blocks := []SlackBlock{
		{Type: "header", Text: &SlackText{Type: "plain_text", Text: title}},
		{Type: "section", Text: &SlackText{Type: "mrkdwn", Text: a.Message}},
		{Type: "section", Fields: []*SlackText{
			{Type: "mrkdwn", Text: fmt.Sprintf("*Cases*\n%d", a.Count)},
			{Type: "mrkdwn", Text: fmt.Sprintf("*Rate per 100k*\n%.1f (threshold %.0f)", a.Rate, a.ThresholdValue)},
		}},
	}
	if len(a.SuggestedActions) > 0 {
		var b strings.Builder
		for _, action := range a.SuggestedActions {
			b.WriteString("• " + action + "\n")
		}
		blocks = append(blocks, SlackBlock{Type: "section", Text: &SlackText{Type: "mrkdwn", Text: strings.TrimSuffix(b.String(), "\n")}})
	}
	blocks = append(blocks, SlackBlock{Type: "context", Elements: []*SlackText{
		{Type: "mrkdwn", Text: fmt.Sprintf("*Reason*: %s | %s | WardWatch", n.Reason, sentAt.UTC().Format(time.RFC3339))},
	}})

	return json.Marshal(SlackPayload{Text: title, Blocks: blocks})
}

// ValidateResponse handles Slack's plain-text and {"ok":false} error bodies.
func (SlackFormatter) ValidateResponse(statusCode int, body []byte) error {
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("slack: unexpected status %d", statusCode)
	}
	text := strings.TrimSpace(string(body))
	if text == "" || text == "ok" {
		return nil
	}
	var resp struct {
		OK    *bool  `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil {
		if resp.OK != nil && !*resp.OK {
			return fmt.Errorf("slack: API error: %s", resp.Error)
		}
		return nil
	}
	switch text {
	case "no_text", "channel_not_found", "channel_is_archived", "invalid_payload":
		return fmt.Errorf("slack: API error: %s", text)
	}
	return nil
}
