package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/afeedhshaji/ollama-worker/pkg/llm"
)

const (
	DefaultPrompt = "Hello, how are you?"
	DefaultModel  = "hf.co/unsloth/QwQ-32B-GGUF:Q4_K_M"

	// ErrorPrefix starts the text returned in place of a generation when the
	// inference call fails.
	ErrorPrefix = "Error querying Ollama: "
)

// ErrMissingInput is returned when a job has no input object at all.
var ErrMissingInput = errors.New("job has no input")

// Handler turns one job into one result with a single generator call.
type Handler struct {
	gen           llm.Generator
	defaultPrompt string
	defaultModel  string
}

// Option overrides a Handler default.
type Option func(*Handler)

// WithDefaultPrompt sets the prompt used when a job omits input.prompt.
func WithDefaultPrompt(prompt string) Option {
	return func(h *Handler) { h.defaultPrompt = prompt }
}

// WithDefaultModel sets the model used when a job omits input.model.
func WithDefaultModel(model string) Option {
	return func(h *Handler) { h.defaultModel = model }
}

func New(gen llm.Generator, opts ...Option) *Handler {
	h := &Handler{
		gen:           gen,
		defaultPrompt: DefaultPrompt,
		defaultModel:  DefaultModel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// DefaultModel returns the model used for jobs that do not name one.
func (h *Handler) DefaultModel() string { return h.defaultModel }

// Handle runs a job. Failures of the inference call do not fail the job:
// their description is returned as the generated text of a success result.
// A panic in the generator yields an error result. Only a job without input
// returns a non-nil error.
func (h *Handler) Handle(ctx context.Context, job Job) (res Result, err error) {
	if job.Input == nil {
		return Result{}, ErrMissingInput
	}
	prompt, model := h.resolve(job.Input)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("job handler panicked", "job_id", job.ID, "panic", r)
			res = Failure(fmt.Sprint(r))
			err = nil
		}
	}()

	response := h.query(ctx, job.ID, prompt, model)
	return Success(response, model), nil
}

func (h *Handler) resolve(in *Input) (prompt, model string) {
	prompt, model = h.defaultPrompt, h.defaultModel
	if in.Prompt != nil {
		prompt = *in.Prompt
	}
	if in.Model != nil {
		model = *in.Model
	}
	return prompt, model
}

func (h *Handler) query(ctx context.Context, jobID, prompt, model string) string {
	out, err := h.gen.Generate(ctx, model, prompt)
	if err != nil {
		// TODO: surface this as a status=error result once callers stop
		// relying on the success shape for failed generations.
		slog.Warn("ollama call failed, returning error text as response", "job_id", jobID, "model", model, "err", err)
		return ErrorPrefix + err.Error()
	}
	return out
}
