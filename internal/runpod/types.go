package runpod

import "encoding/json"

// Job matches the job-take response body.
type Job struct {
	ID    string          `json:"id"`
	Input json.RawMessage `json:"input"`
}

// doneRequest is the job-done body; exactly one of the fields is set.
type doneRequest struct {
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}
