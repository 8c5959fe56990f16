// Package client is a thin HTTP client for the radiowar API. Reads are
// public; writes carry the admin bearer token.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/talgya/radiowar/internal/diplomacy"
	"github.com/talgya/radiowar/internal/engine"
	"github.com/talgya/radiowar/internal/persistence"
	"github.com/talgya/radiowar/internal/social"
	"github.com/talgya/radiowar/internal/territory"
)

// Error is a non-200 response.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status from an error returned by Client,
// or 0 when err is not an API error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Status mirrors GET /api/v1/status.
type Status struct {
	Name      string        `json:"name"`
	Tick      uint64        `json:"tick"`
	Running   bool          `json:"running"`
	Paused    bool          `json:"paused"`
	Connected int           `json:"connected"`
	Session   engine.Status `json:"session"`
}

// Examine mirrors GET /api/v1/station/{id}.
type Examine struct {
	Station     territory.Station `json:"station"`
	Description string            `json:"description"`
}

// CaptureResult mirrors POST /api/v1/capture.
type CaptureResult struct {
	Success   bool              `json:"success"`
	Station   territory.Station `json:"station"`
	Frequency social.Frequency  `json:"frequency"`
}

// RoundDetail mirrors GET /api/v1/rounds/{id}.
type RoundDetail struct {
	Round   persistence.Round `json:"round"`
	Journal []engine.Event    `json:"journal"`
}

// Client talks to one radiowar server.
type Client struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// New creates a Client targeting the given API base URL. adminKey may be
// empty for read-only use.
func New(baseURL, adminKey string) *Client {
	return &Client{
		BaseURL:  baseURL,
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Status() (*Status, error) {
	var s Status
	if err := c.get("/api/v1/status", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Stations() ([]territory.Station, error) {
	var out []territory.Station
	if err := c.get("/api/v1/stations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Station(id string) (*Examine, error) {
	var out Examine
	if err := c.get("/api/v1/station/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Factions() ([]engine.FactionView, error) {
	var out []engine.FactionView
	if err := c.get("/api/v1/factions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Alliances() (*engine.AlliancesView, error) {
	var out engine.AlliancesView
	if err := c.get("/api/v1/alliances", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Documents() ([]diplomacy.Document, error) {
	var out []diplomacy.Document
	if err := c.get("/api/v1/documents", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Summary() (*engine.Summary, error) {
	var out engine.Summary
	if err := c.get("/api/v1/summary", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Events returns up to limit recent events, optionally filtered by category.
func (c *Client) Events(limit int, category string) ([]engine.Event, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if category != "" {
		q.Set("category", category)
	}
	path := "/api/v1/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []engine.Event
	if err := c.get(path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Rounds() ([]persistence.Round, error) {
	var out []persistence.Round
	if err := c.get("/api/v1/rounds", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Round(id string) (*RoundDetail, error) {
	var out RoundDetail
	if err := c.get("/api/v1/rounds/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Capture retunes a station to frequency f. Empty f makes it neutral.
func (c *Client) Capture(station string, f social.Frequency) (*CaptureResult, error) {
	var out CaptureResult
	body := map[string]any{"station": station, "frequency": f}
	if err := c.post("/api/v1/capture", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reconfigure retunes a station by the capturing player's roles.
func (c *Client) Reconfigure(station string, roles []string) (*CaptureResult, error) {
	var out CaptureResult
	body := map[string]any{"station": station, "roles": roles}
	if err := c.post("/api/v1/capture", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) IssueTreaty(document string) (*diplomacy.Outcome, error) {
	return c.outcome("/api/v1/treaty/issue", map[string]string{"document": document})
}

func (c *Client) ApplyTreaty(treaty, document string) (*diplomacy.Outcome, error) {
	return c.outcome("/api/v1/treaty/apply", map[string]string{"treaty": treaty, "document": document})
}

func (c *Client) TerminateAlliance(initiator, target social.Frequency) (*diplomacy.Outcome, error) {
	return c.outcome("/api/v1/treaty/terminate", map[string]social.Frequency{"initiator": initiator, "target": target})
}

func (c *Client) Reset() error {
	return c.post("/api/v1/reset", struct{}{}, nil)
}

func (c *Client) Join(p social.Participant) error {
	return c.post("/api/v1/join", p, nil)
}

func (c *Client) Leave(sessionID string) error {
	return c.post("/api/v1/leave", map[string]string{"session_id": sessionID}, nil)
}

func (c *Client) SetPaused(paused bool) error {
	return c.post("/api/v1/pause", map[string]bool{"paused": paused}, nil)
}

// WaitReady polls the status endpoint until it answers or attempts run out.
func (c *Client) WaitReady(attempts int, every time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if _, err = c.Status(); err == nil {
			return nil
		}
		slog.Debug("API not ready", "attempt", i+1, "error", err)
		time.Sleep(every)
	}
	return fmt.Errorf("API not ready after %d attempts: %w", attempts, err)
}

// outcome posts a diplomacy interaction. An unhandled interaction comes
// back as a 404 carrying the outcome; it is returned alongside the error.
func (c *Client) outcome(path string, body any) (*diplomacy.Outcome, error) {
	var out diplomacy.Outcome
	err := c.post(path, body, &out)
	if err != nil && StatusCode(err) == http.StatusNotFound {
		var apiErr *Error
		errors.As(err, &apiErr)
		if json.Unmarshal([]byte(apiErr.Body), &out) == nil {
			return &out, err
		}
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// get GETs a path and decodes the JSON response into target.
func (c *Client) get(path string, target any) error {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, target)
}

// post sends body as JSON with admin auth and decodes the response into
// target when it is non-nil.
func (c *Client) post(path string, body, target any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AdminKey)
	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target any) error {
	path := req.URL.Path
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{Method: req.Method, Path: path, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
