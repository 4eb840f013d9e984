package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roverfleet/roverfleet/pkg/api"
)

// Event mirrors the coordinator's fleet event records.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RoverID   string    `json:"rover_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Client talks to the coordinator admin API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an API client for the configured coordinator.
func (c *Config) NewClient() (*Client, error) {
	u, err := url.Parse(c.Coordinator)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("coordinator must be an http(s) URL, got %q", c.Coordinator)
	}
	return &Client{
		baseURL: strings.TrimRight(c.Coordinator, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// ListRovers fetches the admin view of every rover.
func (c *Client) ListRovers(ctx context.Context) ([]api.RoverInfo, error) {
	var out []api.RoverInfo
	if err := c.get(ctx, "/api/v1/rovers", &out); err != nil {
		return nil, fmt.Errorf("failed to list rovers: %w", err)
	}
	return out, nil
}

// GetRover fetches one rover by id.
func (c *Client) GetRover(ctx context.Context, id string) (api.RoverInfo, error) {
	var out api.RoverInfo
	if err := c.get(ctx, "/api/v1/rovers/"+url.PathEscape(id), &out); err != nil {
		return api.RoverInfo{}, fmt.Errorf("failed to get rover: %w", err)
	}
	return out, nil
}

// SendCommand queues a command for a rover and waits for the report that
// followed its execution. Poweroff is accepted without a report.
func (c *Client) SendCommand(ctx context.Context, id string, cmd api.Command) (*api.Report, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/rovers/"+url.PathEscape(id)+"/command", body)
	if err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var rep api.Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &rep, nil
}

// FleetUpdate flags every rover for a self-update.
func (c *Client) FleetUpdate(ctx context.Context) (int, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/fleet/update", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to request fleet update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, apiError(resp)
	}

	var out struct {
		Pending int `json:"pending"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return out.Pending, nil
}

// FleetFlush forces a fleet state snapshot to disk.
func (c *Client) FleetFlush(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/fleet/flush", nil)
	if err != nil {
		return fmt.Errorf("failed to flush fleet state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

// Events fetches recent fleet events, newest last.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	path := "/api/v1/events"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []Event
	if err := c.get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("coordinator returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("coordinator returned %d", resp.StatusCode)
}
