// Package webhook delivers alert notifications to HTTP endpoints. Payloads
// are formatted for the detected platform (Slack or a generic JSON schema)
// and signed with HMAC-SHA256 so receivers can authenticate them.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// SignatureHeader carries the payload signature.
const SignatureHeader = "X-WardWatch-Signature"

// Signer signs payloads with a current secret and, during rotation, a
// previous secret that stays valid until PreviousExpiresAt.
//
// Header format: t=<unix>,v1=<hmac>[,v1_old=<hmac>]
type Signer struct {
	Secret            string
	PreviousSecret    string
	PreviousExpiresAt time.Time
}

// Sign returns the header value for payload. The signed content is
// "<unix timestamp>.<payload>".
func (s Signer) Sign(payload []byte, now time.Time) (string, error) {
	if s.Secret == "" {
		return "", fmt.Errorf("webhook signature: empty secret")
	}
	ts := now.Unix()
	content := fmt.Sprintf("%d.%s", ts, payload)

	header := fmt.Sprintf("t=%d,v1=%s", ts, computeHMAC(content, s.Secret))
	if s.PreviousSecret != "" && !s.PreviousExpiresAt.IsZero() && !now.After(s.PreviousExpiresAt) {
		header += ",v1_old=" + computeHMAC(content, s.PreviousSecret)
	}
	return header, nil
}

// Verify reports whether header is a valid signature of payload under any
// of secrets, and that its timestamp is within tolerance of now. A zero
// tolerance skips the timestamp check.
func Verify(payload []byte, header string, now time.Time, tolerance time.Duration, secrets ...string) bool {
	parts := parseSignatureHeader(header)
	if parts.timestamp == "" || parts.v1 == "" {
		return false
	}
	if tolerance > 0 {
		var ts int64
		if _, err := fmt.Sscanf(parts.timestamp, "%d", &ts); err != nil {
			return false
		}
		if d := now.Sub(time.Unix(ts, 0)); d > tolerance || d < -tolerance {
			return false
		}
	}

	content := parts.timestamp + "." + string(payload)
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		expected := computeHMAC(content, secret)
		if hmac.Equal([]byte(parts.v1), []byte(expected)) {
			return true
		}
		if parts.v1Old != "" && hmac.Equal([]byte(parts.v1Old), []byte(expected)) {
			return true
		}
	}
	return false
}

type signatureParts struct {
	timestamp string
	v1        string
	v1Old     string
}

func parseSignatureHeader(header string) signatureParts {
	var parts signatureParts
	for _, segment := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			parts.timestamp = strings.TrimSpace(value)
		case "v1":
			parts.v1 = strings.TrimSpace(value)
		case "v1_old":
			parts.v1Old = strings.TrimSpace(value)
		}
	}
	return parts
}

// computeHMAC returns the lowercase hex HMAC-SHA256 of content.
func computeHMAC(content, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(content))
	return hex.EncodeToString(mac.Sum(nil))
}
