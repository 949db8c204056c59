package runpod

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned by NewClient when the webhook URLs are missing.
var ErrNotConfigured = errors.New("runpod webhooks not configured: set RUNPOD_WEBHOOK_GET_JOB and RUNPOD_WEBHOOK_POST_OUTPUT")

// Client fetches jobs from and reports results to the RunPod serverless API.
type Client struct {
	GetJobURL     string
	PostOutputURL string
	APIKey        string
	HTTP          *http.Client
}

// NewClient substitutes $RUNPOD_POD_ID in both webhook URLs with podID.
func NewClient(getJobURL, postOutputURL, apiKey, podID string) (*Client, error) {
	if getJobURL == "" || postOutputURL == "" {
		return nil, ErrNotConfigured
	}
	return &Client{
		GetJobURL:     strings.ReplaceAll(getJobURL, "$RUNPOD_POD_ID", podID),
		PostOutputURL: strings.ReplaceAll(postOutputURL, "$RUNPOD_POD_ID", podID),
		APIKey:        apiKey,
		HTTP:          &http.Client{Timeout: 90 * time.Second},
	}, nil
}

// FetchJob takes the next job. It returns nil, nil when no job is waiting.
func (c *Client) FetchJob(ctx context.Context) (*Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.GetJobURL, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read job-take response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("job-take returned %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal(bodyBytes, &job); err != nil {
		return nil, fmt.Errorf("decode job-take response: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("job-take response has no id: %s", string(bodyBytes))
	}
	slog.Debug("runpod job received", "job_id", job.ID)
	return &job, nil
}

// PostResult reports a finished job with its output.
func (c *Client) PostResult(ctx context.Context, jobID string, output any) error {
	return c.post(ctx, jobID, doneRequest{Output: output})
}

// PostError reports a job that could not be handled.
func (c *Client) PostError(ctx context.Context, jobID, message string) error {
	return c.post(ctx, jobID, doneRequest{Error: message})
}

func (c *Client) post(ctx context.Context, jobID string, body doneRequest) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode job-done body: %w", err)
	}
	target := strings.ReplaceAll(c.PostOutputURL, "$ID", url.PathEscape(jobID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("job-done non-2xx: %d - %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", c.APIKey)
	}
}
