package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"clothesline-control-backend/config"
)

// Client talks to the clothesline controller's HTTP API with bounded
// timeouts and a fixed-delay retry policy. The base URL and timeout can be
// reconfigured at runtime from the settings surface.
type Client struct {
	mu         sync.RWMutex
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a device client from the device configuration.
func NewClient(cfg *config.DeviceConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// BaseURL returns the currently configured device address.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.httpClient.Timeout
}

// SetEndpoint reconfigures the device address and per-request timeout.
func (c *Client) SetEndpoint(baseURL string, timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = config.NormalizeBaseURL(baseURL)
	c.httpClient = &http.Client{Timeout: timeout}
}

// endpoint validates the configured address and joins the path onto it.
// An empty or localhost address fails fast instead of issuing a request.
func (c *Client) endpoint(path string) (string, *http.Client, *Failure) {
	c.mu.RLock()
	base := c.baseURL
	httpClient := c.httpClient
	c.mu.RUnlock()

	if base == "" {
		return "", nil, &Failure{Kind: ConfigurationError, Detail: "device address is not configured"}
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Host == "" {
		return "", nil, &Failure{Kind: ConfigurationError, Detail: fmt.Sprintf("invalid device address %q", base), Err: err}
	}
	// "http://localhost/" is the firmware flasher's placeholder address.
	if base == "http://localhost/" || base == "http://localhost" {
		return "", nil, &Failure{Kind: ConfigurationError, Detail: "device address is a placeholder"}
	}
	return strings.TrimRight(base, "/") + path, httpClient, nil
}

// FetchReading polls GET /api/data and parses the body into a Reading.
// Each attempt is bounded by the per-request timeout; attempts are retried
// with a fixed delay up to the configured bound.
func (c *Client) FetchReading(ctx context.Context) (*Reading, error) {
	target, httpClient, cfgErr := c.endpoint("/api/data")
	if cfgErr != nil {
		return nil, cfgErr
	}

	body, err := c.doWithRetry(ctx, httpClient, http.MethodGet, target)
	if err != nil {
		return nil, err
	}

	var raw rawReading
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &Failure{Kind: ProtocolError, Detail: "unparseable data body", Err: err}
	}

	return &Reading{
		Timestamp:  time.Now().UTC(),
		Light:      raw.Light,
		Rain:       raw.Rain,
		DoorStatus: ParseDoorStatus(raw.Status),
		Rotation:   raw.Rotation,
	}, nil
}

// SendCommand issues POST /api/control?action=<cmd>. The command is
// accepted only on HTTP 200 with no explicit failure in the body.
// Idempotence against the current door status is the caller's concern.
func (c *Client) SendCommand(ctx context.Context, cmd Command) (*Outcome, error) {
	target, httpClient, cfgErr := c.endpoint("/api/control?action=" + url.QueryEscape(string(cmd)))
	if cfgErr != nil {
		return nil, cfgErr
	}

	body, err := c.doWithRetry(ctx, httpClient, http.MethodPost, target)
	if err != nil {
		return nil, err
	}

	outcome := Outcome{Accepted: true, Message: "command accepted"}
	if len(body) > 0 {
		var parsed struct {
			Success *bool  `json:"success"`
			Message string `json:"message"`
		}
		// A non-JSON 200 body still counts as accepted; only an explicit
		// success=false downgrades the outcome.
		if jsonErr := json.Unmarshal(body, &parsed); jsonErr == nil {
			if parsed.Message != "" {
				outcome.Message = parsed.Message
			}
			if parsed.Success != nil && !*parsed.Success {
				outcome.Accepted = false
			}
		}
	}
	return &outcome, nil
}

// CheckConnection probes GET /api/status. Used by the HTTP surface only;
// a down device yields a disconnected result, never a hung request.
func (c *Client) CheckConnection(ctx context.Context) *ConnectionStatus {
	target, httpClient, cfgErr := c.endpoint("/api/status")
	if cfgErr != nil {
		return &ConnectionStatus{Connected: false, Message: cfgErr.Detail}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &ConnectionStatus{Connected: false, Message: err.Error()}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return &ConnectionStatus{Connected: false, Message: classifyTransportError(err).Detail}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ConnectionStatus{Connected: false, Message: fmt.Sprintf("device returned HTTP %d", resp.StatusCode)}
	}
	return &ConnectionStatus{Connected: true, Message: "device is connected"}
}

// doWithRetry performs one HTTP exchange with the configured retry policy
// and returns the response body of the first 200 response.
func (c *Client) doWithRetry(ctx context.Context, httpClient *http.Client, method, target string) ([]byte, error) {
	c.mu.RLock()
	maxRetries := c.maxRetries
	retryDelay := c.retryDelay
	c.mu.RUnlock()

	var lastFailure *Failure
	for attempt := 1; attempt <= maxRetries; attempt++ {
		body, failure := c.doOnce(ctx, httpClient, method, target)
		if failure == nil {
			return body, nil
		}
		lastFailure = failure
		log.Printf("device request %s %s attempt %d/%d failed: %v", method, target, attempt, maxRetries, failure)

		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &Failure{Kind: Timeout, Detail: "cancelled while retrying", Err: ctx.Err()}
		case <-time.After(retryDelay):
		}
	}
	return nil, lastFailure
}

func (c *Client) doOnce(ctx context.Context, httpClient *http.Client, method, target string) ([]byte, *Failure) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, &Failure{Kind: ConfigurationError, Detail: "failed to build request", Err: err}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Failure{Kind: ProtocolError, Detail: "failed to read response body", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Failure{Kind: ProtocolError, Detail: fmt.Sprintf("device returned HTTP %d", resp.StatusCode)}
	}
	return body, nil
}
