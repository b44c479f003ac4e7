package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"visitorlog/internal/auth"
	"visitorlog/internal/cloudinary"
	"visitorlog/internal/config"
	"visitorlog/internal/metrics"
	"visitorlog/internal/offload"
	"visitorlog/internal/queue"
	"visitorlog/internal/store"
	"visitorlog/internal/telemetry"
	"visitorlog/internal/terms"
	"visitorlog/internal/visitor"
	"visitorlog/internal/web"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.WithError(err).Fatal("http server failed")
	}
}

func runHTTP(cfg config.App, logger *logrus.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry := telemetry.Setup("visitorlog", logger)
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.WithError(err).Warn("telemetry shutdown")
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	backends, err := store.Open(ctx, store.OpenOptions{
		Backend:     cfg.StoreBackend,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		RedisAddr:   cfg.RedisAddr,
		WithRedis:   cfg.QueueBackend == "redis",
	})
	if err != nil {
		return err
	}
	defer backends.Close()
	logger.WithField("backend", cfg.StoreBackend).Info("store ready")

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		q = queue.NewRedisQueue(backends.Redis.Client, "")
	} else {
		q = queue.NewInMemory(64)
	}

	reg := prometheus.DefaultRegisterer
	m := metrics.New(reg)

	repo := visitor.NewRepository(backends.Slots, cfg.VisitorsKey, logger)
	svc := visitor.NewService(repo, visitor.Options{
		Location:    loc,
		PhoneRegion: cfg.DefaultPhoneRegion,
		Events:      q,
		Logger:      logger,
	})
	metrics.RegisterCheckedIn(reg, func() float64 {
		readCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		records, err := svc.List(readCtx)
		if err != nil {
			return 0
		}
		n := 0
		for _, r := range records {
			if r.CheckedIn() {
				n++
			}
		}
		return float64(n)
	})

	sessions := auth.NewSessions(backends.Slots)
	authn, err := auth.NewAuthenticator(cfg.AdminPassword, cfg.AdminPasswordHash, sessions)
	if err != nil {
		return err
	}

	doc, err := terms.Load(cfg.TermsFile)
	if err != nil {
		return err
	}

	// Cloudinary client (nil when not configured)
	var uploader offload.Uploader
	if cfg.CloudinaryEnabled() {
		uploader = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		logger.WithField("cloud", cfg.CloudinaryCloudName).Info("cloudinary configured")
	} else {
		logger.Info("cloudinary not configured, photos stay in the visitor store")
	}
	// Deferred after backends.Close, so it runs first on every return path.
	stopOffload := offload.New(svc, uploader, m.Offloads, logger).Start(ctx, q)
	defer stopOffload()

	signingKey := cfg.SessionSigningKey
	if signingKey == "" {
		signingKey = uuid.NewString()
		logger.Warn("SESSION_SIGNING_KEY not set, admin sessions will not survive a restart")
	}

	h := web.NewHandler(web.Deps{
		Visitors:      svc,
		Authenticator: authn,
		Sessions:      sessions,
		Terms:         doc,
		Metrics:       m,
		Logger:        logger,
	})
	r := web.NewRouter(h, web.Options{
		Cookie: auth.CookieConfig{
			Name:       cfg.SessionCookie,
			Issuer:     cfg.SessionIssuer,
			SigningKey: signingKey,
			Secure:     cfg.Production(),
		},
		RateLimitPerMin: cfg.RateLimitPerMin,
		LoginPerMin:     cfg.LoginPerMin,
		CORSOrigins:     cfg.CORSOrigins,
		AccessLog:       logger.Writer(),
		Health: func(ctx context.Context) (gin.H, bool) {
			status, ok := backends.Health(ctx)
			body := gin.H{}
			for k, v := range status {
				body[k] = v
			}
			return body, ok
		},
		Metrics: promhttp.Handler(),
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "visitorlog"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.HTTPPort).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("shutting down server")
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("server forced shutdown")
	}

	logger.Info("server exited")
	return nil
}
