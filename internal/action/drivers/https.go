// Package drivers implements the concrete action.Driver
// implementations: an HTTPS callback webhook, Redis pub/sub and
// key-value sinks, and a Kafka producer, each grounded on the
// third-party client the rest of this module already uses for that
// transport.
package drivers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/icholy/digest"

	"github.com/sctg-development/photoacoustic-core/internal/action"
)

// HTTPSCallbackDriver posts JSON measurement/alert payloads to a
// configured webhook URL, with an optional custom auth header or
// HTTP digest authentication (github.com/icholy/digest).
type HTTPSCallbackDriver struct {
	url         string
	authHeader  string
	authValue   string
	useDigest   bool
	digestUser  string
	digestPass  string
	timeout     time.Duration

	mu          sync.RWMutex
	client      *http.Client
	connected   bool
}

// NewHTTPSCallbackDriver builds a driver posting to url.
func NewHTTPSCallbackDriver(url string) *HTTPSCallbackDriver {
	return &HTTPSCallbackDriver{url: url, timeout: 5 * time.Second}
}

// WithAuthHeader sets a static header sent with every request (e.g.
// "Authorization: Bearer ...").
func (d *HTTPSCallbackDriver) WithAuthHeader(name, value string) *HTTPSCallbackDriver {
	d.authHeader, d.authValue = name, value
	return d
}

// WithDigestAuth enables RFC 7616 HTTP digest authentication for the
// callback endpoint.
func (d *HTTPSCallbackDriver) WithDigestAuth(user, pass string) *HTTPSCallbackDriver {
	d.useDigest, d.digestUser, d.digestPass = true, user, pass
	return d
}

// WithTimeout overrides the default 5s request timeout.
func (d *HTTPSCallbackDriver) WithTimeout(timeout time.Duration) *HTTPSCallbackDriver {
	d.timeout = timeout
	return d
}

func (d *HTTPSCallbackDriver) Initialize(ctx context.Context) error {
	transport := http.DefaultTransport
	if d.useDigest {
		transport = &digest.Transport{Username: d.digestUser, Password: d.digestPass}
	}
	d.mu.Lock()
	d.client = &http.Client{Timeout: d.timeout, Transport: transport}
	d.connected = true
	d.mu.Unlock()
	return nil
}

func (d *HTTPSCallbackDriver) post(ctx context.Context, payload any) error {
	d.mu.RLock()
	client := d.client
	d.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("https callback driver not initialized")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.authHeader != "" {
		req.Header.Set(d.authHeader, d.authValue)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting callback: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("callback endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *HTTPSCallbackDriver) UpdateAction(ctx context.Context, data action.MeasurementData) error {
	return d.post(ctx, map[string]any{
		"event":             "update",
		"concentration_ppm": data.ConcentrationPPM,
		"peak_frequency_hz": data.PeakFrequencyHz,
		"peak_amplitude":    data.PeakAmplitude,
		"source":            data.Source,
		"timestamp":         data.Timestamp.UTC(),
	})
}

func (d *HTTPSCallbackDriver) ShowAlert(ctx context.Context, alert action.AlertData) error {
	return d.post(ctx, map[string]any{
		"event":     "alert",
		"type":      alert.Type,
		"severity":  alert.Severity,
		"message":   alert.Message,
		"timestamp": alert.Timestamp.UTC(),
		"meta":      alert.Meta,
	})
}

func (d *HTTPSCallbackDriver) ClearAction(ctx context.Context) error {
	return d.post(ctx, map[string]any{"event": "clear"})
}

func (d *HTTPSCallbackDriver) GetStatus(ctx context.Context) (map[string]any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return map[string]any{
		"driver_type": d.DriverType(),
		"url":         d.url,
		"connected":   d.connected,
	}, nil
}

func (d *HTTPSCallbackDriver) DriverType() string { return "https_callback" }

func (d *HTTPSCallbackDriver) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
	return nil
}
