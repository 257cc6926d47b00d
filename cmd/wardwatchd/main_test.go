package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wardwatch/internal/config"
	"wardwatch/internal/notifications/webhook"
)

// setTestEnv sets the environment for a local, stubbed daemon. It uses
// t.Setenv to ensure cleanup after the test.
func setTestEnv(t *testing.T) {
	t.Helper()

	t.Setenv("APP_ENV", "local")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("SQS_ALERT_QUEUE", "")
	t.Setenv("ALERT_WEBHOOK_URL", "")
	t.Setenv("REFDATA_PATH", "")
	t.Setenv("SIMULATE_CASES", "true")
	t.Setenv("SIMULATE_SEED", "42")
}

func buildTestApp(t *testing.T) *app {
	t.Helper()
	setTestEnv(t)

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a, err := build(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(a.close)
	return a
}

func get(t *testing.T, a *app, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	a := buildTestApp(t)

	rec := get(t, a, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health: got status %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Status     string                    `json:"status"`
		Components map[string]map[string]any `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	for _, name := range []string{"reference_data", "tracker"} {
		if _, ok := resp.Components[name]; !ok {
			t.Errorf("missing health component %q", name)
		}
	}
}

func TestBuild_SeedsSyntheticHistory(t *testing.T) {
	a := buildTestApp(t)

	if a.store.Len() == 0 {
		t.Fatal("expected backfilled cases in the store")
	}

	rec := get(t, a, "/v1/wards")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/wards: got status %d; body: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data []struct {
			ID              string `json:"id"`
			RecentCaseCount int    `json:"recent_case_count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 10 {
		t.Fatalf("got %d wards, want 10", len(body.Data))
	}
	total := 0
	for _, w := range body.Data {
		total += w.RecentCaseCount
	}
	if total == 0 {
		t.Error("expected cases inside the alert window")
	}
}

func reportCholera(t *testing.T, a *app) {
	t.Helper()
	body := `{"ward_id":"w7","disease":"cholera","severity":"high","reported_at":"` +
		time.Now().UTC().Add(-time.Hour).Format(time.RFC3339) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/cases", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/cases: got status %d; body: %s", rec.Code, rec.Body.String())
	}
}

func TestEndToEnd_ReportCaseRaisesAlert(t *testing.T) {
	a := buildTestApp(t)

	// w7 is not a hotspot and has no cholera pattern, so the alert comes from
	// the reports below.
	var raised bool
	for i := 0; i < 200 && !raised; i++ {
		reportCholera(t, a)
		for _, alert := range a.service.Alerts() {
			if alert.WardID == "w7" && alert.Disease == "cholera" {
				raised = true
			}
		}
	}
	if !raised {
		t.Fatal("expected a cholera alert for w7")
	}
}

func TestTrackingLifecycleOverHTTP(t *testing.T) {
	a := buildTestApp(t)

	post := func(path, body string) int {
		var rdr io.Reader
		if body != "" {
			rdr = strings.NewReader(body)
		}
		req := httptest.NewRequest(http.MethodPost, path, rdr)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		a.server.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	if code := post("/v1/location/start", ""); code != http.StatusAccepted {
		t.Fatalf("start: got %d", code)
	}
	if code := post("/v1/location/fix", `{"lat":19.0200,"lng":72.8500,"accuracy_m":10}`); code != http.StatusAccepted {
		t.Fatalf("fix: got %d", code)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap := a.navigator.Current(); snap.Selected != nil && snap.Route != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("navigator never selected a facility: %+v", a.navigator.Current())
}

func TestEndToEnd_WebhookReceivesSignedAlert(t *testing.T) {
	type delivery struct {
		body []byte
		sig  string
	}
	got := make(chan delivery, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		select {
		case got <- delivery{body: body, sig: r.Header.Get(webhook.SignatureHeader)}:
		default:
		}
	}))
	defer srv.Close()

	setTestEnv(t)
	t.Setenv("SIMULATE_CASES", "false")
	t.Setenv("ALERT_WEBHOOK_URL", srv.URL)
	t.Setenv("ALERT_WEBHOOK_SECRET", "e2e-secret")
	t.Setenv("ALERT_WEBHOOK_ALLOW_PRIVATE", "true")

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	a, err := build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(a.close)

	for i := 0; i < 200 && len(a.service.Alerts()) == 0; i++ {
		reportCholera(t, a)
	}

	select {
	case d := <-got:
		if !webhook.Verify(d.body, d.sig, time.Now(), time.Minute, "e2e-secret") {
			t.Errorf("webhook signature did not verify: %q", d.sig)
		}
		var payload webhook.GenericPayload
		if err := json.Unmarshal(d.body, &payload); err != nil {
			t.Fatalf("decode webhook payload: %v", err)
		}
		if payload.Alert.WardID != "w7" {
			t.Errorf("alert ward = %q, want w7", payload.Alert.WardID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("webhook never called")
	}
}
