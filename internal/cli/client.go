package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/soundbed/backdrop/internal/core"
	berrors "github.com/soundbed/backdrop/internal/errors"
)

// apiClient talks to a running backdrop daemon over its HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

func newClient() *apiClient {
	return &apiClient{
		base: "http://" + cfg.Server.Addr,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// playRequest mirrors the daemon's play body: a preset name from the
// config, or a full descriptor.
type playRequest struct {
	Preset     string           `json:"preset,omitempty"`
	Descriptor *core.Descriptor `json:"descriptor,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

// do issues a request and decodes the JSON response into out (when
// non-nil). Non-2xx responses surface the daemon's error message.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return berrors.WithSuggestion(
			fmt.Errorf("daemon unreachable at %s: %w", cfg.Server.Addr, err),
			"start the daemon with 'backdrop serve'",
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) status(ctx context.Context) (*core.Status, error) {
	var st core.Status
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *apiClient) playBackground(ctx context.Context, req playRequest) (map[string]string, error) {
	var resp map[string]string
	if err := c.do(ctx, http.MethodPost, "/api/background", req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *apiClient) stopBackground(ctx context.Context, fade time.Duration) error {
	path := "/api/background"
	if fade > 0 {
		path += "?fade_ms=" + fmt.Sprint(fade.Milliseconds())
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *apiClient) playEffect(ctx context.Context, req playRequest) (map[string]string, error) {
	var resp map[string]string
	if err := c.do(ctx, http.MethodPost, "/api/effects", req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *apiClient) stopEffects(ctx context.Context, key string) error {
	path := "/api/effects"
	if key != "" {
		path += "?key=" + url.QueryEscape(key)
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *apiClient) trigger(ctx context.Context, trigCtx string) (map[string]string, error) {
	var resp map[string]string
	body := map[string]string{"context": trigCtx}
	if err := c.do(ctx, http.MethodPost, "/api/trigger", body, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *apiClient) stopAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/stop", nil, nil)
}

func (c *apiClient) pause(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/pause", nil, nil)
}

func (c *apiClient) resume(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/resume", nil, nil)
}

func (c *apiClient) setVolume(ctx context.Context, v float64) (float64, error) {
	var resp map[string]float64
	if err := c.do(ctx, http.MethodPut, "/api/volume", map[string]float64{"volume": v}, &resp); err != nil {
		return 0, err
	}
	return resp["volume"], nil
}

func (c *apiClient) seek(ctx context.Context, seconds float64) (float64, error) {
	var resp map[string]float64
	if err := c.do(ctx, http.MethodPut, "/api/position", map[string]float64{"seconds": seconds}, &resp); err != nil {
		return 0, err
	}
	return resp["position"], nil
}

func (c *apiClient) setRate(ctx context.Context, rate float64) (float64, error) {
	var resp map[string]float64
	if err := c.do(ctx, http.MethodPut, "/api/rate", map[string]float64{"rate": rate}, &resp); err != nil {
		return 0, err
	}
	return resp["rate"], nil
}
