package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/afeedhshaji/ollama-worker/internal/handler"
	"github.com/afeedhshaji/ollama-worker/internal/runpod"
	"github.com/afeedhshaji/ollama-worker/pkg/deduper"
)

// JobSource is the serverless side of the worker: where jobs come from and
// where their outcomes go.
type JobSource interface {
	FetchJob(ctx context.Context) (*runpod.Job, error)
	PostResult(ctx context.Context, jobID string, output any) error
	PostError(ctx context.Context, jobID, message string) error
}

type JobHandler interface {
	Handle(ctx context.Context, job handler.Job) (handler.Result, error)
}

type Worker struct {
	Source       JobSource
	Handler      JobHandler
	PollInterval time.Duration
	Deduper      *deduper.Deduper
}

func New(source JobSource, h JobHandler, pollInterval time.Duration, dedup *deduper.Deduper) *Worker {
	return &Worker{
		Source:       source,
		Handler:      h,
		PollInterval: pollInterval,
		Deduper:      dedup,
	}
}

// Start polls for jobs until ctx is cancelled. Jobs are handled one at a time.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	slog.Info("worker: polling for jobs", "interval", w.PollInterval)
	for {
		select {
		case <-ticker.C:
			w.processNext(ctx)
		case <-ctx.Done():
			slog.Info("worker: context cancelled, stopping polling loop")
			return
		}
	}
}

// processNext fetches and handles at most one job. It reports whether a job was taken.
func (w *Worker) processNext(ctx context.Context) bool {
	rj, err := w.Source.FetchJob(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("worker: fetching job", "err", err)
		}
		return false
	}
	if rj == nil {
		return false
	}
	if w.Deduper != nil && w.Deduper.Seen(rj.ID) {
		slog.Warn("worker: skipping redelivered job", "job_id", rj.ID)
		return false
	}

	// The outcome is reported even if shutdown starts mid-job.
	postCtx := context.WithoutCancel(ctx)

	job, err := toHandlerJob(rj)
	if err != nil {
		slog.Error("worker: invalid job", "job_id", rj.ID, "err", err)
		w.postError(postCtx, rj.ID, err.Error())
		return true
	}

	start := time.Now()
	res, err := w.Handler.Handle(ctx, job)
	if err != nil {
		slog.Error("worker: job failed", "job_id", rj.ID, "err", err)
		w.postError(postCtx, rj.ID, err.Error())
		return true
	}
	slog.Info("worker: handled "+handler.Label(job), "job_id", rj.ID, "status", res.Status, "model", res.Model, "elapsed", time.Since(start))

	if err := w.Source.PostResult(postCtx, rj.ID, res); err != nil {
		slog.Error("worker: posting result", "job_id", rj.ID, "err", err)
	}
	return true
}

func (w *Worker) postError(ctx context.Context, jobID, msg string) {
	if err := w.Source.PostError(ctx, jobID, msg); err != nil {
		slog.Error("worker: posting job error", "job_id", jobID, "err", err)
	}
}

func toHandlerJob(rj *runpod.Job) (handler.Job, error) {
	job := handler.Job{ID: rj.ID}
	raw := rj.Input
	if len(raw) == 0 || string(raw) == "null" {
		return job, nil
	}
	var in handler.Input
	if err := json.Unmarshal(raw, &in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return job, fmt.Errorf("decode job input: field %q must be a string", typeErr.Field)
		}
		return job, fmt.Errorf("decode job input: %w", err)
	}
	job.Input = &in
	return job, nil
}
