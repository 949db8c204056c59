package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/afeedhshaji/ollama-worker/internal/ollama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	out   string
	err   error
	panic any

	gotModel  string
	gotPrompt string
	calls     int
}

func (f *fakeGenerator) Generate(_ context.Context, model, prompt string) (string, error) {
	f.calls++
	f.gotModel, f.gotPrompt = model, prompt
	if f.panic != nil {
		panic(f.panic)
	}
	return f.out, f.err
}

func strPtr(s string) *string { return &s }

func TestHandle_DefaultsApplied(t *testing.T) {
	gen := &fakeGenerator{out: "ok"}
	h := New(gen)

	res, err := h.Handle(context.Background(), Job{Input: &Input{}})
	require.NoError(t, err)

	assert.Equal(t, DefaultPrompt, gen.gotPrompt)
	assert.Equal(t, DefaultModel, gen.gotModel)
	assert.Equal(t, Success("ok", DefaultModel), res)
}

func TestHandle_ExplicitFields(t *testing.T) {
	gen := &fakeGenerator{out: "Paris"}
	h := New(gen)

	res, err := h.Handle(context.Background(), Job{Input: &Input{
		Prompt: strPtr("Capital of France?"),
		Model:  strPtr("llama3.2"),
	}})
	require.NoError(t, err)

	assert.Equal(t, "Capital of France?", gen.gotPrompt)
	assert.Equal(t, "llama3.2", gen.gotModel)
	assert.Equal(t, Result{Status: "success", Response: "Paris", Model: "llama3.2"}, res)
	assert.Equal(t, 1, gen.calls)
}

func TestHandle_EmptyStringsAreNotDefaulted(t *testing.T) {
	gen := &fakeGenerator{out: "x"}
	h := New(gen)

	_, err := h.Handle(context.Background(), Job{Input: &Input{Prompt: strPtr(""), Model: strPtr("")}})
	require.NoError(t, err)
	assert.Equal(t, "", gen.gotPrompt)
	assert.Equal(t, "", gen.gotModel)
}

func TestHandle_ConfiguredDefaults(t *testing.T) {
	gen := &fakeGenerator{out: "x"}
	h := New(gen, WithDefaultPrompt("ping"), WithDefaultModel("tiny"))

	res, err := h.Handle(context.Background(), Job{Input: &Input{}})
	require.NoError(t, err)
	assert.Equal(t, "ping", gen.gotPrompt)
	assert.Equal(t, "tiny", res.Model)
	assert.Equal(t, "tiny", h.DefaultModel())
}

func TestHandle_GeneratorErrorBecomesSuccessText(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection refused")}
	h := New(gen)

	res, err := h.Handle(context.Background(), Job{Input: &Input{Model: strPtr("m")}})
	require.NoError(t, err)
	assert.Equal(t, Result{
		Status:   "success",
		Response: "Error querying Ollama: connection refused",
		Model:    "m",
	}, res)
}

func TestHandle_PanicBecomesErrorResult(t *testing.T) {
	gen := &fakeGenerator{panic: "boom"}
	h := New(gen)

	res, err := h.Handle(context.Background(), Job{ID: "j1", Input: &Input{}})
	require.NoError(t, err)
	assert.Equal(t, Failure("boom"), res)
}

func TestHandle_MissingInput(t *testing.T) {
	gen := &fakeGenerator{}
	h := New(gen)

	_, err := h.Handle(context.Background(), Job{})
	require.ErrorIs(t, err, ErrMissingInput)
	assert.Zero(t, gen.calls)
}

func TestHandle_AgainstOllamaServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": "X"}`))
	}))
	defer srv.Close()

	h := New(ollama.New(srv.URL, 0))
	job, err := ParseJob([]byte(`{"input": {"prompt": "hi", "model": "qwq"}}`))
	require.NoError(t, err)

	res, err := h.Handle(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, Success("X", "qwq"), res)
}

func TestHandle_OllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	h := New(ollama.New(url, 0))
	res, err := h.Handle(context.Background(), Job{Input: &Input{}})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, DefaultModel, res.Model)
	assert.Contains(t, res.Response, "Error querying Ollama: calling ollama:")
}

func TestHandle_OllamaNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res, err := New(ollama.New(srv.URL, 0)).Handle(context.Background(), Job{Input: &Input{}})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "Error querying Ollama: ollama returned status 500: ", res.Response)
}

func TestParseJob(t *testing.T) {
	j, err := ParseJob([]byte(`{"id": "abc", "input": {"prompt": null}}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", j.ID)
	require.NotNil(t, j.Input)
	assert.Nil(t, j.Input.Prompt)
	assert.Nil(t, j.Input.Model)
	assert.Equal(t, "job abc", Label(j))

	j, err = ParseJob([]byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, j.Input)
	assert.Equal(t, "anonymous job", Label(j))

	_, err = ParseJob([]byte(`{"input": {"prompt": 42}}`))
	require.Error(t, err)
}

func TestResult_JSONShapes(t *testing.T) {
	b, err := json.Marshal(Success("", "m"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","response":"","model":"m"}`, string(b))

	b, err = json.Marshal(Failure("bad"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","message":"bad"}`, string(b))

	var r Result
	require.NoError(t, json.Unmarshal([]byte(`{"status":"error","message":"bad"}`), &r))
	assert.Equal(t, Failure("bad"), r)
}
