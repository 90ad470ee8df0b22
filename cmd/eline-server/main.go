package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eline/internal/analytics"
	"eline/internal/auth"
	"eline/internal/automation"
	"eline/internal/config"
	"eline/internal/httpapi"
	"eline/internal/hub"
	"eline/internal/logger"
	"eline/internal/notify"
	"eline/internal/onboarding"
	"eline/internal/queue"
	"eline/internal/realtime"
	"eline/internal/store/postgres"
	"eline/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		ServiceName: "eline",
		Development: cfg.LogDevelopment,
		FilePath:    cfg.LogFile,
		MaxSizeMB:   cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		MaxAgeDays:  cfg.LogMaxAgeDays,
	})
	defer func() { _ = log.Sync() }()

	shutdownTelemetry := telemetry.Setup("eline", log)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	if cfg.DatabaseURL == "" {
		log.Fatal("DB_DSN is required")
	}
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	clock := clockwork.NewRealClock()
	loc := cfg.Location()
	st := postgres.NewStore(pool, postgres.Options{BatchLimit: cfg.SweepBatchSize})
	h := hub.New(log.Named("hub"))

	var publisher realtime.Publisher = realtime.NewLocalPublisher(h, clock, log.Named("realtime"))
	if cfg.RedisURL != "" {
		client, err := realtime.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatal("redis url", zap.Error(err))
		}
		defer client.Close()
		publisher = realtime.NewRedisPublisher(client, clock, log.Named("realtime"))
		go func() {
			if err := realtime.Relay(ctx, client, h, log.Named("realtime")); err != nil {
				log.Error("redis relay stopped", zap.Error(err))
			}
		}()
		log.Info("realtime events fan out through redis")
	}

	templates := notify.Templates{AppURL: cfg.AppURL}
	dispatcher := notify.New(notify.Config{
		Provider:         cfg.NotifyProvider,
		WhatsAppToken:    cfg.WhatsAppToken,
		WhatsAppPhoneID:  cfg.WhatsAppPhoneID,
		TwilioAccountSID: cfg.TwilioAccountSID,
		TwilioAuthToken:  cfg.TwilioAuthToken,
		TwilioFrom:       cfg.TwilioPhoneNumber,
	}, st, clock, log.Named("notify"))
	log.Info("notification channels", zap.Strings("channels", dispatcher.Channels()))

	engine := queue.New(st, dispatcher, publisher, clock, log.Named("queue"), queue.Options{
		Templates:    templates,
		DemoMode:     cfg.DemoMode,
		DemoBusiness: cfg.DemoBusiness,
	})
	generator := analytics.NewGenerator(st, clock, loc, log.Named("analytics"))

	var scheduler *automation.Scheduler
	if cfg.AutomationEnabled {
		scheduler = automation.New(st, dispatcher, generator, clock, log.Named("automation"), automation.Config{
			NoShowInterval:   cfg.NoShowInterval,
			NoShowGrace:      cfg.NoShowGrace,
			FeedbackInterval: cfg.FeedbackInterval,
			LoyaltyInterval:  cfg.LoyaltyInterval,
			UpcomingInterval: cfg.UpcomingInterval,
			BatchSize:        cfg.SweepBatchSize,
			Templates:        templates,
		})
		scheduler.Start(ctx)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, clock)
	authService := auth.NewService(st, tokens, clock, log.Named("auth"))
	seedCtx, cancelSeed := context.WithTimeout(ctx, 10*time.Second)
	if created, err := authService.EnsureDefaultAdmin(seedCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Error("default admin", zap.Error(err))
	} else if created {
		log.Warn("default admin created, change its password", zap.String("email", cfg.AdminEmail))
	}
	cancelSeed()

	handler := httpapi.NewHandler(httpapi.Dependencies{
		Queue:      engine,
		Directory:  st,
		Dashboard:  st,
		Auth:       authService,
		Onboarding: onboarding.New(st, dispatcher, templates, clock, log.Named("onboarding")),
		Analytics:  generator,
		Clock:      clock,
		Log:        log.Named("http"),
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:       cfg.RateLimitPerMinute,
		IPBurst:           cfg.RateLimitBurst,
		BusinessPerMinute: cfg.BusinessRateLimitPerMinute,
		BusinessBurst:     cfg.BusinessRateLimitBurst,
		Clock:             clock,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle(realtime.Prefix+"/", realtime.NewHandler(h, engine.ResolveBusiness, log.Named("realtime")))
	mux.Handle("/", httpapi.AuthMiddleware(tokens, handler.Routes()))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(httpapi.LoggingMiddleware(log, limiter.Middleware(mux)), "eline"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("eline listening", zap.String("addr", server.Addr), zap.Bool("demo_mode", cfg.DemoMode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	stopBackground()
	log.Info("eline stopped")
}
