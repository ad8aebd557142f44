package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/banshee-data/scanline/internal/config"
	"github.com/banshee-data/scanline/internal/httputil"
	"github.com/banshee-data/scanline/internal/lidar/l1scans"
)

// Client calls a remote scanline web server.
type Client struct {
	HTTPClient httputil.Doer
	BaseURL    string
}

// NewClient creates a client for baseURL. A nil httpClient uses a 30s
// timeout client.
func NewClient(httpClient httputil.Doer, baseURL string) *Client {
	if httpClient == nil {
		httpClient = httputil.NewClient(0)
	}
	return &Client{
		HTTPClient: httpClient,
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Segment posts scan for segmentation. A nil threshold uses the server's
// configured default.
func (c *Client) Segment(ctx context.Context, scan *l1scans.RawScan, threshold *float64) (*ResultResponse, error) {
	data, err := json.Marshal(scan)
	if err != nil {
		return nil, fmt.Errorf("encode scan: %w", err)
	}
	q := url.Values{}
	if threshold != nil {
		q.Set("threshold", strconv.FormatFloat(*threshold, 'g', -1, 64))
	}
	var out ResultResponse
	if err := c.do(ctx, http.MethodPost, "/api/lidar/segment", q, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRuns fetches up to limit stored runs, newest first.
func (c *Client) ListRuns(ctx context.Context, limit int) (*RunListResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out RunListResponse
	if err := c.do(ctx, http.MethodGet, "/api/lidar/runs", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRun fetches one stored run with its segments.
func (c *Client) GetRun(ctx context.Context, runID string, withPoints bool) (*ResultResponse, error) {
	q := url.Values{}
	if !withPoints {
		q.Set("points", "false")
	}
	var out ResultResponse
	if err := c.do(ctx, http.MethodGet, "/api/lidar/runs/"+url.PathEscape(runID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRun removes a stored run.
func (c *Client) DeleteRun(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodDelete, "/api/lidar/runs/"+url.PathEscape(runID), nil, nil, nil)
}

// Nearest asks for the k segments of runID closest to (x, y).
func (c *Client) Nearest(ctx context.Context, runID string, x, y float64, k int) (*NearestResponse, error) {
	q := url.Values{}
	q.Set("x", strconv.FormatFloat(x, 'g', -1, 64))
	q.Set("y", strconv.FormatFloat(y, 'g', -1, 64))
	if k > 0 {
		q.Set("k", strconv.Itoa(k))
	}
	var out NearestResponse
	if err := c.do(ctx, http.MethodGet, "/api/lidar/runs/"+url.PathEscape(runID)+"/nearest", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetParams fetches the server's default split parameters.
func (c *Client) GetParams(ctx context.Context) (*ParamsResponse, error) {
	var out ParamsResponse
	if err := c.do(ctx, http.MethodGet, "/api/lidar/params", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetParams posts a partial tuning config and returns the parameters now in
// effect.
func (c *Client) SetParams(ctx context.Context, cfg *config.TuningConfig) (*ParamsResponse, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	var out ParamsResponse
	if err := c.do(ctx, http.MethodPost, "/api/lidar/params", nil, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte, out interface{}) error {
	target := c.BaseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
	}
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if err := httputil.DecodeJSON(resp, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}
