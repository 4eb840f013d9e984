package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roverfleet/roverfleet/pkg/api"
)

// Client is the agent's view of the coordinator wire protocol: one blocking
// request/response exchange per loop iteration.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a coordinator client for the given base URL
// (e.g. "http://coordinator:8080").
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid coordinator address %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("coordinator address %q must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Register submits the one-time identity bootstrap request.
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	body, err := c.postJSON(ctx, c.baseURL+"/api/v1/rovers", req)
	if err != nil {
		return nil, err
	}

	var resp api.RegisterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode register response: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("coordinator returned empty rover id")
	}
	return &resp, nil
}

// Report submits the per-cycle status report and returns the next command,
// or nil if the coordinator has nothing queued.
func (c *Client) Report(ctx context.Context, roverID string, rep api.Report) (*api.Command, error) {
	u := fmt.Sprintf("%s/api/v1/rovers/%s/report", c.baseURL, url.PathEscape(roverID))
	body, err := c.postJSON(ctx, u, rep)
	if err != nil {
		return nil, err
	}
	cmd, err := api.DecodeCommand(body)
	if err != nil {
		return nil, fmt.Errorf("decode next command: %w", err)
	}
	return cmd, nil
}

// FetchProgram reads the current agent program text from the coordinator's
// distribution endpoint.
func (c *Client) FetchProgram(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/program", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch program: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch program: coordinator returned %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read program body: %w", err)
	}
	return data, nil
}

func (c *Client) postJSON(ctx context.Context, u string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coordinator returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}
