package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	appai "github.com/bryanwahyu/homeready/internal/application/ai"
	appaudits "github.com/bryanwahyu/homeready/internal/application/audits"
	"github.com/bryanwahyu/homeready/internal/config"
	"github.com/bryanwahyu/homeready/internal/domain/assessment"
	"github.com/bryanwahyu/homeready/internal/domain/catalog"
	"github.com/bryanwahyu/homeready/internal/infra/ai/openai"
	"github.com/bryanwahyu/homeready/internal/infra/db"
	"github.com/bryanwahyu/homeready/internal/infra/httpserver"
	"github.com/bryanwahyu/homeready/internal/infra/render"
	minioStore "github.com/bryanwahyu/homeready/internal/infra/storage"
	"github.com/bryanwahyu/homeready/internal/middleware"
	"github.com/bryanwahyu/homeready/internal/observability"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v, ok := os.LookupEnv("CONFIG_PATH"); ok {
		path = v
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == "config.yaml" {
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		observability.NewLogger("info", "json").Error("config load failed", "path", path, "error", err)
		os.Exit(1)
	}
	log := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	fatal := func(msg string, err error) {
		log.Error(msg, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	cat, err := catalog.Default()
	if err != nil {
		fatal("catalog load failed", err)
	}
	metrics.CatalogItems.WithLabelValues("recommendation").Set(float64(len(cat.Recommendations())))
	metrics.CatalogItems.WithLabelValues("grant").Set(float64(len(cat.Grants())))
	metrics.CatalogItems.WithLabelValues("insurance").Set(float64(len(cat.InsurancePrograms())))

	engine, err := assessment.NewEngine(cat, assessment.WithBaselinePremium(cfg.Report.BaselinePremium))
	if err != nil {
		fatal("rule table invalid", err)
	}

	store, closeStore, err := db.Open(ctx, cfg)
	if err != nil {
		fatal("database open failed", err)
	}
	defer closeStore()
	log.Info("database ready", "driver", cfg.Database.Driver)

	chrome := render.NewChromeConverter(cfg.Report.ChromePath)
	defer chrome.Close()

	svc := &appaudits.Service{
		Repo:           store,
		Engine:         engine,
		Catalog:        cat,
		Renderer:       render.NewRenderer(chrome, cfg.Report.RenderTimeout),
		Clock:          clockwork.NewRealClock(),
		Metrics:        metrics,
		Log:            log,
		RequirePayment: cfg.Report.RequirePayment,
	}

	if cfg.ArchiveEnabled() {
		archive, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			fatal("minio init failed", err)
		}
		svc.Archive = archive
		log.Info("report archive enabled", "bucket", cfg.Minio.BucketName)
	}

	if cfg.InsightsEnabled() {
		client := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
		svc.Insights = appai.NewService(client, log)
		log.Info("ai insights enabled", "model", cfg.OpenAI.Model)
	}

	var limiter *middleware.RateLimiter
	if rpm := cfg.Server.RateLimit.RequestsPerMinute; rpm > 0 {
		limiter = middleware.NewRateLimiter(rpm, cfg.Server.RateLimit.Burst, clockwork.NewRealClock())
		go limiter.Run(ctx)
	}

	handler := httpserver.NewRouter(svc, httpserver.Options{
		Log:         log,
		Metrics:     metrics,
		Gatherer:    prometheus.DefaultGatherer,
		Checks:      map[string]middleware.HealthChecker{"database": middleware.PingChecker{Target: store}},
		Limiter:     limiter,
		CORSOrigins: cfg.Server.CORSOrigins,
		AdminAPIKey: cfg.Admin.APIKey,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// report rendering can take up to the render timeout
		WriteTimeout: cfg.Report.RenderTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		fatal("server error", err)
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
