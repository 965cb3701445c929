package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shotbrain/docs"
	"shotbrain/internal/config"
	"shotbrain/internal/database"
	handlers "shotbrain/internal/http/handler"
	"shotbrain/internal/http/middleware"
	"shotbrain/internal/logging"
	"shotbrain/internal/ocr"
	"shotbrain/internal/ocr/tesseract"
	"shotbrain/internal/otel"
	"shotbrain/internal/repository"
	"shotbrain/internal/repository/memory"
	"shotbrain/internal/repository/postgres"
	"shotbrain/internal/service"
	"shotbrain/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title ShotBrain API
// @version 1.0
// @description Upload screenshots and photos, extract their text with OCR.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout, cfg.Location())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return goerr.Wrap(err, "init tracing")
	}

	for _, dir := range []string{cfg.Upload.Dir, cfg.Upload.StaticDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return goerr.Wrap(err, "create directory", goerr.V("dir", dir))
		}
	}

	// History lives in memory unless a database is configured
	var (
		db   *sql.DB
		repo repository.UploadRepository
	)
	if cfg.Database.Enabled() {
		db, err = database.NewPostgres(ctx, cfg.Database, logger)
		if err != nil {
			return goerr.Wrap(err, "connect database", goerr.V("db_host", cfg.Database.Host))
		}
		defer db.Close()
		repo = postgres.NewUploadPostgres(db)
	} else {
		repo = memory.NewUploadMemory()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return goerr.Wrap(err, "register http metrics")
	}
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return goerr.Wrap(err, "register upload metrics")
	}

	extractor := ocr.NewExtractor(tesseract.New, cfg.OCR.Languages...)
	defer func() {
		if err := extractor.Close(); err != nil {
			logger.Warn("ocr_close_failed", "error", err)
		}
	}()

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(metrics),
		service.WithUploadsPrefix(cfg.Upload.Prefix),
	}
	if cfg.MinIO.Enabled() {
		mirror, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return goerr.Wrap(err, "init object storage mirror", goerr.V("endpoint", cfg.MinIO.Endpoint))
		}
		opts = append(opts, service.WithMirror(mirror))
	}
	uploadSvc := service.NewUploadService(storage.NewDisk(cfg.Upload.Dir), extractor, repo, opts...)

	app := fiber.New(fiber.Config{
		AppName:      "ShotBrain",
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.Upload.BodyLimitMB * 1024 * 1024,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, db, uploadSvc, handlers.Config{
		UploadDir:     cfg.Upload.Dir,
		StaticDir:     cfg.Upload.StaticDir,
		UploadsPrefix: cfg.Upload.Prefix,
		RecentLimit:   cfg.Upload.RecentLimit,
		Logger:        logger,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_starting",
			"addr", addr,
			"upload_dir", cfg.Upload.Dir,
			"ocr_languages", cfg.OCR.Languages,
			"database", cfg.Database.Enabled(),
			"mirror", cfg.MinIO.Enabled(),
		)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("server_shutdown_failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing_shutdown_failed", "error", err)
	}
	return nil
}
