package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/SelahattinNazli/OCR-Service/internal/common"
	"github.com/SelahattinNazli/OCR-Service/internal/export"
	"github.com/SelahattinNazli/OCR-Service/internal/llm/ollama"
	"github.com/SelahattinNazli/OCR-Service/internal/pipeline/parsefields"
	"github.com/SelahattinNazli/OCR-Service/internal/repository"
	"github.com/SelahattinNazli/OCR-Service/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// History persistence is optional; without DB_URL the service runs
	// fully stateless.
	var history repository.ExtractionRepository
	var exporter *export.Service
	if cfg.Database.DSN != "" {
		db, pool, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			logger.Error("opening database", "error", err)
			os.Exit(1)
		}
		defer repository.Close(db, pool, logger)

		if err := repository.HealthCheck(ctx, db, cfg.Database.DialTimeout, logger); err != nil {
			logger.Error("database health failed", "error", err)
			os.Exit(1)
		}
		if err := repository.EnsureSchema(ctx, db); err != nil {
			logger.Error("ensuring schema", "error", err)
			os.Exit(1)
		}
		history = repository.NewExtractionRepository(db, logger)
		exporter = export.NewService(history, logger)
	}

	client := ollama.NewClient(ollama.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	pipeline := parsefields.NewPipeline(logger, parsefields.Config{
		FallbackKeyword: cfg.LLM.FallbackKeyword,
	}, client, history)

	srv := server.New(logger, pipeline, history, exporter)
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr, "model", cfg.LLM.Model)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	logger.Info("stopped")
}
