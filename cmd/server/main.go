// Command server runs the certificate issuance and verification HTTP service.
//
// Startup sequence: load environment configuration, configure logging, create
// the data and artifact directories, open the SQLite database and apply
// migrations, resolve the document-export capability, register routes, then
// serve until SIGINT/SIGTERM triggers a graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/atelierlumen/go-opinion-backend/internal/config"
	"github.com/atelierlumen/go-opinion-backend/internal/export"
	httpapi "github.com/atelierlumen/go-opinion-backend/internal/http"
	"github.com/atelierlumen/go-opinion-backend/internal/observability"
	"github.com/atelierlumen/go-opinion-backend/internal/repo"
	"github.com/atelierlumen/go-opinion-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)

	log.Info().Str("version", version).Str("port", cfg.Port).Msg("starting server")

	if err := sysutil.EnsureDirs(
		filepath.Dir(cfg.DBPath),
		cfg.Storage.BagImageDir,
		cfg.Storage.QRImageDir,
		cfg.Storage.PDFDir,
	); err != nil {
		log.Fatal().Err(err).Msg("create data directories")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}
	if err := repo.EnsureAuthenticationDateColumn(db); err != nil {
		log.Fatal().Err(err).Msg("ensure authentication_date column")
	}

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup opentelemetry")
	}

	var exporter export.Exporter
	if cfg.Export.Enabled {
		exporter = export.New(export.Config{
			OutputDir:    cfg.Storage.PDFDir,
			BagImageDir:  cfg.Storage.BagImageDir,
			FetchTimeout: cfg.Export.FetchTimeout,
			PDFEnabled:   cfg.Export.PDFEnabled,
		})
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, exporter, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown failed")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info().Msg("server stopped")
}
