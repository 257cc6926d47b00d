// Package main is the entry point for the WardWatch daemon.
//
// It loads configuration and reference data, wires the case store, alert
// engine, location tracker and navigator behind the HTTP chassis, and runs
// the server together with the periodic alert recompute and, optionally,
// the synthetic case generator.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"golang.org/x/sync/errgroup"

	"wardwatch/internal/alerts"
	"wardwatch/internal/api/handlers"
	"wardwatch/internal/cases"
	"wardwatch/internal/config"
	"wardwatch/internal/core"
	"wardwatch/internal/external"
	"wardwatch/internal/location"
	"wardwatch/internal/navigation"
	"wardwatch/internal/notifications"
	"wardwatch/internal/notifications/webhook"
	"wardwatch/internal/refdata"
	"wardwatch/internal/routing"
	"wardwatch/internal/security"
	"wardwatch/internal/simulate"
	"wardwatch/internal/surveillance"
	"wardwatch/internal/types"
)

const (
	webhookMaxRedirects = 3
	webhookUserAgent    = "WardWatch-Webhook/1.0"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.SlogLevel())
	logger.Info("wardwatch starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	return a.serve(ctx)
}

// app is the fully wired daemon.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	server    *core.Server
	store     *cases.Store
	engine    *alerts.Engine
	service   *surveillance.Service
	tracker   *location.Tracker
	navigator *navigation.Navigator
	generator *simulate.Generator
	metrics   *notifications.CloudWatchAlertMetrics
	detach    func()
}

// build wires every component. AWS clients are created only when a feature
// that needs them is enabled.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	ds := refdata.Default()
	if cfg.RefData.Path != "" {
		loaded, err := refdata.Load(cfg.RefData.Path)
		if err != nil {
			return nil, fmt.Errorf("loading reference data: %w", err)
		}
		ds = loaded
	}
	wards, facilities, err := ds.Registries()
	if err != nil {
		return nil, fmt.Errorf("reference data: %w", err)
	}
	logger.Info("reference data loaded", "wards", wards.Len(), "facilities", len(facilities.All()), "path", cfg.RefData.Path)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	slogger := types.NewSlogLogger(logger)
	notifier := notifications.Fanout{notifications.NewLogNotifier(slogger.With("component", "notifier"))}

	var cw *notifications.CloudWatchAlertMetrics
	if cfg.Observability.MetricsEnabled || cfg.Notifications.AlertQueueURL != "" {
		awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		if cfg.Notifications.AlertQueueURL != "" {
			notifier = append(notifier, notifications.NewSQSNotifier(
				sqs.NewFromConfig(awsCfg), cfg.Notifications.AlertQueueURL, nil, slogger.With("component", "sqs_notifier")))
		}
		if cfg.Observability.MetricsEnabled {
			cw = notifications.NewCloudWatchAlertMetrics(
				cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, slogger.With("component", "metrics"))
			srv.Metrics = cw
		}
	}

	if cfg.Notifications.WebhookURL != "" {
		hook, err := newWebhookNotifier(ctx, cfg, slogger)
		if err != nil {
			return nil, err
		}
		notifier = append(notifier, hook)
		logger.Info("webhook notifier enabled", "platform", hook.Platform())
	}

	store := cases.NewStore(wards,
		cases.WithValidator(srv.Validator),
		cases.WithLogger(logger.With("component", "case_store")),
	)

	engineOpts := []alerts.EngineOption{
		alerts.WithWindow(cfg.Surveillance.Window),
		alerts.WithNotifier(notifier),
		alerts.WithLogger(slogger),
	}
	if cw != nil {
		engineOpts = append(engineOpts, alerts.WithMetrics(cw))
	}
	engine, err := alerts.NewEngine(wards, store, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating alert engine: %w", err)
	}

	service := surveillance.New(store, engine,
		surveillance.WithInterval(cfg.Surveillance.RecomputeInterval),
		surveillance.WithWindow(cfg.Surveillance.Window),
		surveillance.WithLogger(logger.With("component", "surveillance")),
	)

	clients := external.NewClientRegistry(cfg, facilities.All(), logger)
	routeOpts := []routing.Option{routing.WithLogger(slogger.With("component", "routing"))}
	if cw != nil {
		routeOpts = append(routeOpts, routing.WithMetrics(cw))
	}
	router := routing.NewProvider(clients.Directions, routeOpts...)

	feed := location.NewPushSource()
	tracker := location.NewTracker(feed, location.Config{
		MinorMoveMeters: cfg.Tracking.MinorMoveMeters,
		FirstFixTimeout: cfg.Tracking.FirstFixTimeout,
	}, slogger.With("component", "tracker"))

	nav := navigation.New(clients.Facilities, router, navigation.Config{
		MajorMoveMeters: cfg.Tracking.MajorMoveMeters,
		RadiusKm:        cfg.Facilities.RadiusKm,
		MaxResults:      cfg.Facilities.MaxResults,
	}, navigation.WithLogger(slogger.With("component", "navigator")))
	detach := nav.Attach(tracker)

	surveillanceHandler := handlers.NewSurveillanceHandler(service, srv.Validator, nil, logger)
	trackingHandler := handlers.NewTrackingHandler(ctx, tracker, feed, nav, srv.Validator, nil, logger)
	facilityHandler := handlers.NewFacilityHandler(clients.Facilities, facilities, nav, router, cfg.Facilities.RadiusKm, logger)
	mapHandler := handlers.NewMapHandler(service, facilities, tracker, nav, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		surveillanceHandler.RegisterRoutes,
		trackingHandler.RegisterRoutes,
		facilityHandler.RegisterRoutes,
		mapHandler.RegisterRoutes,
	)
	srv.HealthProbes = append(srv.HealthProbes,
		core.ProbeFunc{Label: "reference_data", Fn: func(context.Context) error {
			if wards.Len() == 0 {
				return errors.New("no wards loaded")
			}
			return nil
		}},
		core.ProbeFunc{Label: "tracker", Fn: func(context.Context) error {
			if snap := tracker.Snapshot(); snap.State == location.StateError {
				return fmt.Errorf("tracker error: %s", snap.Error)
			}
			return nil
		}},
	)
	srv.MountRoutes()

	a := &app{
		cfg:       cfg,
		logger:    logger,
		server:    srv,
		store:     store,
		engine:    engine,
		service:   service,
		tracker:   tracker,
		navigator: nav,
		metrics:   cw,
		detach:    detach,
	}

	if cfg.Simulation.Enabled {
		simOpts := []simulate.Option{simulate.WithLogger(logger.With("component", "simulator"))}
		if cfg.Simulation.Seed != 0 {
			simOpts = append(simOpts, simulate.WithSeed(cfg.Simulation.Seed))
		}
		a.generator = simulate.New(wards.All(), simOpts...)
		if err := a.backfill(ctx); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// backfill seeds the store with a month of synthetic history and runs a
// single recompute over it.
func (a *app) backfill(ctx context.Context) error {
	history := a.generator.Backfill()
	for _, c := range history {
		if _, err := a.store.AddCase(c); err != nil {
			return fmt.Errorf("seeding synthetic case: %w", err)
		}
	}
	delta, err := a.engine.Recompute(ctx)
	if err != nil {
		return fmt.Errorf("initial recompute: %w", err)
	}
	a.logger.Info("synthetic history seeded", "cases", len(history), "alerts_raised", len(delta.Raised))
	return nil
}

// serve runs the HTTP server, the recompute loop and the simulator until ctx
// is cancelled or one of them fails.
func (a *app) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.server.ListenAndServe(gctx) })
	g.Go(func() error { return a.service.Run(gctx) })

	if a.generator != nil {
		g.Go(func() error {
			return a.generator.Run(gctx, a.cfg.Simulation.Interval, func(ctx context.Context, c types.CaseReport) error {
				_, _, err := a.service.ReportCase(ctx, c)
				return err
			})
		})
	}

	err := g.Wait()
	a.logger.Info("wardwatch stopped", "error", err)
	return err
}

// close releases the tracker session and waits for in-flight navigation work.
func (a *app) close() {
	a.detach()
	a.tracker.Stop()
	a.navigator.Close()
	if a.metrics != nil {
		a.metrics.Flush()
	}
}

// newWebhookNotifier validates the target and builds a notifier whose
// requests go through the shared retry and circuit breaker client.
func newWebhookNotifier(ctx context.Context, cfg *config.Config, logger types.Logger) (*webhook.Notifier, error) {
	n := cfg.Notifications
	httpClient := &http.Client{Timeout: n.WebhookTimeout}
	if !n.WebhookAllowPrivate {
		if err := security.ValidateURL(ctx, n.WebhookURL, nil); err != nil {
			return nil, fmt.Errorf("webhook: %w", err)
		}
		httpClient = security.NewSafeHTTPClient(n.WebhookTimeout, webhookMaxRedirects)
	}
	base := external.NewBaseClient(httpClient, "alert-webhook", external.DefaultRetryPolicy(), webhookUserAgent)
	return webhook.NewNotifier(base, webhook.Config{
		URL: n.WebhookURL,
		Signer: webhook.Signer{
			Secret:            n.WebhookSecret,
			PreviousSecret:    n.WebhookPreviousSecret,
			PreviousExpiresAt: n.WebhookPreviousExpiry,
		},
	}, nil, logger.With("component", "webhook_notifier")), nil
}

func loadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	if cfg.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.EndpointURL)
	}
	return awsCfg, nil
}

// newLogger creates a JSON slog.Logger at the given level.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
