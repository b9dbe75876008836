//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/geo"
	"github.com/surakshasphere/sentinel/internal/service/core"
)

// Client wraps the sentinel server's HTTP API with convenience helpers.
type Client struct {
	// baseURL is the server address with scheme, no trailing slash.
	baseURL string
	// httpClient performs the requests.
	httpClient *http.Client

	// callTimeout is the default timeout for individual calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errActorRequired is returned when an actor is not provided but is required for the operation.
	errActorRequired = errors.New("actor must be provided")
	// errReasonRequired is returned when a trigger is attempted without a reason.
	errReasonRequired = errors.New("reason must be provided")
)

// StateSnapshot is the server's view of the world as returned by GetState.
type StateSnapshot struct {
	*core.Snapshot

	// SirenEmitting reports whether the siren is currently sounding.
	SirenEmitting bool `json:"siren_emitting"`
	// PulseCount is the shake detector's rolling pulse counter.
	PulseCount int `json:"pulse_count"`
}

// TriggerResult reports the outcome of a trigger or cancel call.
type TriggerResult struct {
	Activated bool         `json:"activated"`
	State     safety.State `json:"state"`
}

// Dial builds a client for the sentinel server at the given address.
// A bare host:port is assumed to be plain HTTP.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	parsed, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}

	client := &Client{
		baseURL:     strings.TrimRight(parsed.String(), "/"),
		httpClient:  &http.Client{},
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases idle connections held by the underlying HTTP client.
func (c *Client) Close() error {
	if c == nil || c.httpClient == nil {
		return nil
	}

	c.httpClient.CloseIdleConnections()

	return nil
}

// GetState retrieves the current emergency snapshot.
func (c *Client) GetState(ctx context.Context) (*StateSnapshot, error) {
	var snapshot StateSnapshot
	if err := c.call(ctx, http.MethodGet, "/state", nil, &snapshot); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}

	return &snapshot, nil
}

// Healthy checks the liveness endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	if err := c.call(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	return nil
}

// Trigger requests a manual emergency activation.
func (c *Client) Trigger(ctx context.Context, reason safety.Reason, actor *safety.Actor) (*TriggerResult, error) {
	if reason == "" {
		return nil, errReasonRequired
	}

	if actor == nil {
		return nil, errActorRequired
	}

	request := struct {
		Reason safety.Reason `json:"reason"`
		Actor  *safety.Actor `json:"actor"`
	}{Reason: reason, Actor: actor}

	var result TriggerResult
	if err := c.call(ctx, http.MethodPost, "/trigger", request, &result); err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}

	return &result, nil
}

// Cancel requests the all-clear. Returns core.ErrNotActive when the server
// is already idle, so callers can treat that as success.
func (c *Client) Cancel(ctx context.Context, actor *safety.Actor) (*TriggerResult, error) {
	if actor == nil {
		return nil, errActorRequired
	}

	request := struct {
		Actor *safety.Actor `json:"actor"`
	}{Actor: actor}

	var result TriggerResult

	err := c.call(ctx, http.MethodPost, "/cancel", request, &result)

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusConflict {
		return nil, core.ErrNotActive
	}

	if err != nil {
		return nil, fmt.Errorf("cancel: %w", err)
	}

	return &result, nil
}

// SendPosition reports one GPS fix to the server.
func (c *Client) SendPosition(ctx context.Context, position *geo.Coordinate) error {
	if position == nil {
		return nil
	}

	if err := c.call(ctx, http.MethodPost, "/ingest/position", position, nil); err != nil {
		return fmt.Errorf("send position: %w", err)
	}

	return nil
}

// SendMotion reports one acceleration sample to the server.
func (c *Client) SendMotion(ctx context.Context, x, y, z float64) error {
	sample := struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		Z float64 `json:"z"`
	}{X: x, Y: y, Z: z}

	if err := c.call(ctx, http.MethodPost, "/ingest/motion", sample, nil); err != nil {
		return fmt.Errorf("send motion: %w", err)
	}

	return nil
}

// SendHazard reports one classifier frame to the server.
func (c *Client) SendHazard(ctx context.Context, label string, confidence float64) error {
	frame := struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}{Label: label, Confidence: confidence}

	if err := c.call(ctx, http.MethodPost, "/ingest/hazard", frame, nil); err != nil {
		return fmt.Errorf("send hazard: %w", err)
	}

	return nil
}

// SendTranscript reports one speech recognition result to the server.
func (c *Client) SendTranscript(ctx context.Context, text string) error {
	payload := struct {
		Text string `json:"text"`
	}{Text: text}

	if err := c.call(ctx, http.MethodPost, "/ingest/transcript", payload, nil); err != nil {
		return fmt.Errorf("send transcript: %w", err)
	}

	return nil
}

// GetSettings retrieves the server's runtime settings.
func (c *Client) GetSettings(ctx context.Context) (*config.Settings, error) {
	var settings config.Settings
	if err := c.call(ctx, http.MethodGet, "/settings", nil, &settings); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	return &settings, nil
}

// UpdateSettings replaces the server's runtime settings.
func (c *Client) UpdateSettings(ctx context.Context, settings *config.Settings) (*config.Settings, error) {
	if settings == nil {
		return nil, errors.New("settings must be provided")
	}

	var applied config.Settings
	if err := c.call(ctx, http.MethodPut, "/settings", settings, &applied); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	return &applied, nil
}

// StatusError reports a non-2xx response from the server.
type StatusError struct {
	// Code is the HTTP status code.
	Code int
	// Body is the trimmed response body, usually the server's error text.
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

// call performs one JSON request/response round trip.
// A nil in skips the request body, a nil out discards the response body.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if in != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}

	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		text, _ := io.ReadAll(io.LimitReader(response.Body, 1024))

		return &StatusError{
			Code: response.StatusCode,
			Body: strings.TrimSpace(string(text)),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
