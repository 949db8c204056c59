package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/afeedhshaji/ollama-worker/config"
	"github.com/afeedhshaji/ollama-worker/internal/handler"
	"github.com/afeedhshaji/ollama-worker/internal/logger"
	"github.com/afeedhshaji/ollama-worker/internal/ollama"
	"github.com/afeedhshaji/ollama-worker/internal/runpod"
	"github.com/afeedhshaji/ollama-worker/internal/server"
	"github.com/afeedhshaji/ollama-worker/internal/worker"
	"github.com/afeedhshaji/ollama-worker/pkg/deduper"
	"github.com/afeedhshaji/ollama-worker/pkg/llm"
	"github.com/afeedhshaji/ollama-worker/pkg/openaicompat"
	"github.com/urfave/cli/v3"
)

type appContext struct {
	cfg     *config.Config
	ollama  *ollama.Client
	handler *handler.Handler
}

func newAppContext(cmd *cli.Command) (*appContext, error) {
	cfg, err := config.LoadConfig(cmd.String("env"))
	if err != nil {
		return nil, err
	}

	logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: cmd.Root().ErrWriter,
	})

	oc := ollama.New(cfg.OllamaURL, cfg.OllamaTimeout)
	var gen llm.Generator = oc
	if cfg.OllamaAPI == "openai" {
		gen = openaicompat.New(cfg.OllamaURL, cfg.OllamaTimeout)
	}
	slog.Debug("config loaded", "ollama_url", cfg.OllamaURL, "api", cfg.OllamaAPI, "default_model", cfg.DefaultModel)

	return &appContext{
		cfg:    cfg,
		ollama: oc,
		handler: handler.New(gen,
			handler.WithDefaultPrompt(cfg.DefaultPrompt),
			handler.WithDefaultModel(cfg.DefaultModel),
		),
	}, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}

	raw := []byte(cmd.String("test-input"))
	if len(raw) == 0 {
		path := cmd.String("test-input-file")
		raw, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("no --test-input given and cannot read %s: %w", path, err)
		}
	}

	job, err := handler.ParseJob(raw)
	if err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = "local_test"
	}

	res, err := app.handler.Handle(ctx, job)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cmd.String("addr"),
		Handler:           server.New(app.handler, app.ollama, app.handler.DefaultModel()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("local API listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("exited")
	return nil
}

func workerAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}
	cfg := app.cfg

	rp, err := runpod.NewClient(cfg.RunPodGetJobURL, cfg.RunPodPostOutputURL, cfg.RunPodAPIKey, cfg.RunPodPodID)
	if err != nil {
		return err
	}

	dedup := deduper.New(cfg.DedupeTTL)
	defer dedup.Stop()

	w := worker.New(rp, app.handler, cfg.PollInterval, dedup)
	w.Start(ctx)
	slog.Info("exited")
	return nil
}
