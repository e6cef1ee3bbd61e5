package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aiox-platform/autopilot/internal/api"
	"github.com/aiox-platform/autopilot/internal/auth"
	"github.com/aiox-platform/autopilot/internal/browser"
	"github.com/aiox-platform/autopilot/internal/config"
	"github.com/aiox-platform/autopilot/internal/database"
	"github.com/aiox-platform/autopilot/internal/engine"
	"github.com/aiox-platform/autopilot/internal/eventlog"
	"github.com/aiox-platform/autopilot/internal/matcher"
	mw "github.com/aiox-platform/autopilot/internal/middleware"
	inats "github.com/aiox-platform/autopilot/internal/nats"
	"github.com/aiox-platform/autopilot/internal/pattern"
	iredis "github.com/aiox-platform/autopilot/internal/redis"
	"github.com/aiox-platform/autopilot/internal/secret"
	"github.com/aiox-platform/autopilot/internal/server"
	"github.com/aiox-platform/autopilot/internal/training"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS
	natsClient, err := inats.NewClient(ctx, cfg.NATS)
	if err != nil {
		slog.Error("connecting to nats", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	publisher := inats.NewPublisher(natsClient.JetStream())
	consumerMgr := inats.NewConsumerManager(natsClient.JetStream())

	// Browser
	tab, err := browser.Connect(ctx, cfg.Browser)
	if err != nil {
		slog.Error("connecting to browser", "error", err)
		os.Exit(1)
	}
	defer tab.Close()

	// Patterns
	sealer, err := secret.NewSealer(cfg.Encryption.Key)
	if err != nil {
		slog.Error("creating payload sealer", "error", err)
		os.Exit(1)
	}
	patternSvc := pattern.NewService(pattern.NewRepository(pool), sealer)
	patternHandler := pattern.NewHandler(patternSvc)

	patternMatcher := matcher.New(patternSvc)
	matchHandler := matcher.NewHandler(patternMatcher)

	// Training
	notifier := engine.NewNotifier(publisher)
	trainingStore := training.NewStore(redisClient, cfg.Training.SessionTTL)
	trainingSvc := training.NewService(trainingStore, patternSvc, tab, tab, notifier)
	trainingHandler := training.NewHandler(trainingSvc)

	// Engine
	eng := engine.New(
		patternMatcher,
		patternSvc,
		trainingSvc,
		engine.NewLocker(redisClient, cfg.Engine.LockTTL),
		pattern.NewDOMEffector(tab, cfg.Browser.SettleDelay),
		tab,
		publisher,
	)
	engineHandler := engine.NewHandler(eng)

	go func() {
		if err := eng.Start(ctx, consumerMgr); err != nil && ctx.Err() == nil {
			slog.Error("engine consumers stopped", "error", err)
		}
	}()

	// Event log
	eventRepo := eventlog.NewRepository(pool)
	eventHandler := eventlog.NewHandler(eventRepo)
	go func() {
		if err := eventlog.NewConsumer(eventRepo, consumerMgr).Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("event log consumer stopped", "error", err)
		}
	}()

	// Router
	jwtManager := auth.NewJWTManager(cfg.JWT.AccessSecret)
	rateLimiter := mw.NewRateLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSec).KeyBy(auth.Subject)

	router := api.NewRouter(api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimiter:        rateLimiter.Middleware,
		Checks: map[string]api.HealthCheck{
			"database": func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
			"redis":    func(ctx context.Context) error { return iredis.HealthCheck(ctx, redisClient) },
			"nats":     natsClient.Ping,
		},
	}, api.HandlerSet{
		ListPatterns:      patternHandler.List,
		GetPattern:        patternHandler.Get,
		DeletePattern:     patternHandler.Delete,
		MatchPattern:      matchHandler.Match,
		ListPatternEvents: eventHandler.ListPatternEvents,

		SubmitAutomation:  engineHandler.Submit,
		RespondToGuidance: engineHandler.RespondToGuidance,

		StartTraining:    trainingHandler.Start,
		GetTraining:      trainingHandler.Get,
		RequestSelection: trainingHandler.RequestSelection,
		ConfirmSelection: trainingHandler.Confirm,
		CancelSelection:  trainingHandler.Cancel,
		EndTraining:      trainingHandler.End,

		AuthMiddleware: auth.Middleware(jwtManager),
	})

	// Start server
	srv := server.New(cfg.Server, cfg.Browser.ActionTimeout, router)
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
