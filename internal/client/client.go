// Package client talks to the external scheduling service: it registers
// processes, runs an algorithm and decodes the returned snapshot.
//
// There are no retries. A failed request is reported to the caller as-is.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
)

// maxErrorBody limits how much of an error response is echoed back.
const maxErrorBody = 512

// Client is an HTTP client for the scheduling service.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the service at baseURL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid service URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("service URL scheme must be http or https (got %q)", u.Scheme)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = u.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// RunURL returns the URL Run would request for req.
func (c *Client) RunURL(req schedule.Request) string {
	return c.endpoint("/run_scheduler", req.Query())
}

// AddProcess registers one process and returns the service's process count.
func (c *Client) AddProcess(ctx context.Context, p schedule.Process) (int, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("encode process: %w", err)
	}

	var out struct {
		Status    string            `json:"status"`
		Message   string            `json:"message"`
		Processes []json.RawMessage `json:"processes"`
	}
	if err := c.do(ctx, http.MethodPost, c.endpoint("/add_process", nil), bytes.NewReader(body), &out); err != nil {
		return 0, fmt.Errorf("add process: %w", err)
	}
	if out.Status != "" && out.Status != "success" {
		return 0, fmt.Errorf("add process: service status %q: %s", out.Status, out.Message)
	}

	c.logger.Debug("process_added", "arrival", p.Arrival, "burst", p.Burst, "count", len(out.Processes))
	return len(out.Processes), nil
}

// Run executes the algorithm over the registered processes.
func (c *Client) Run(ctx context.Context, req schedule.Request) (*schedule.Snapshot, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("run scheduler: %w", err)
	}

	start := time.Now()
	resp, err := c.send(ctx, http.MethodGet, c.endpoint("/run_scheduler", req.Query()), nil)
	if err != nil {
		return nil, fmt.Errorf("run scheduler: %w", err)
	}
	defer resp.Body.Close()

	snap, err := schedule.DecodeSnapshot(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("run scheduler: %w", err)
	}

	c.logger.Info("scheduler_run",
		"algorithm", req.Algorithm,
		"processes", len(snap.Stats),
		"events", len(snap.Events),
		"duration", time.Since(start),
	)
	return snap, nil
}

// Clear removes every registered process on the service.
func (c *Client) Clear(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, c.endpoint("/clear", nil), nil, nil); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	c.logger.Debug("service_cleared")
	return nil
}

// do sends a request and decodes a JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, target string, body io.Reader, out any) error {
	resp, err := c.send(ctx, method, target, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send performs the request and returns the response for a 2xx status.
func (c *Client) send(ctx context.Context, method, target string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}
