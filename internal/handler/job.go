package handler

import (
	"encoding/json"
	"fmt"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Input is the job payload. A nil field, whether absent or JSON null,
// falls back to the handler default.
type Input struct {
	Prompt *string `json:"prompt,omitempty"`
	Model  *string `json:"model,omitempty"`
}

type Job struct {
	ID    string `json:"id,omitempty"`
	Input *Input `json:"input"`
}

// Result is either {status, response, model} or {status, message}.
type Result struct {
	Status   string
	Response string
	Model    string
	Message  string
}

func Success(response, model string) Result {
	return Result{Status: StatusSuccess, Response: response, Model: model}
}

func Failure(message string) Result {
	return Result{Status: StatusError, Message: message}
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Status == StatusError {
		return json.Marshal(struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}{r.Status, r.Message})
	}
	return json.Marshal(struct {
		Status   string `json:"status"`
		Response string `json:"response"`
		Model    string `json:"model"`
	}{r.Status, r.Response, r.Model})
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var raw struct {
		Status   string `json:"status"`
		Response string `json:"response"`
		Model    string `json:"model"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Result{Status: raw.Status, Response: raw.Response, Model: raw.Model, Message: raw.Message}
	return nil
}

// ParseJob decodes a raw job document such as {"id": "...", "input": {...}}.
func ParseJob(b []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(b, &j); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	return j, nil
}

// Label returns a short description of the job for log lines.
func Label(j Job) string {
	if j.ID != "" {
		return "job " + j.ID
	}
	return "anonymous job"
}
