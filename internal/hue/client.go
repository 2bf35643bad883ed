package hue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/rs/zerolog/log"
)

// ErrLightNotFound is returned when the bridge does not know the light
var ErrLightNotFound = errors.New("light not found")

// Client talks to the v1 REST API of a Hue bridge with an authenticated user
type Client struct {
	address    string
	token      string
	httpClient *http.Client
	attempts   uint
	retryDelay time.Duration
}

// NewClient creates a new Hue client. attempts is the number of tries per
// request, including the first one.
func NewClient(address, token string, timeout time.Duration, attempts int) *Client {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if attempts < 1 {
		attempts = 1
	}

	return &Client{
		address: address,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		attempts:   uint(attempts),
		retryDelay: 250 * time.Millisecond,
	}
}

// Connect verifies that the bridge is reachable and the token is accepted
func (c *Client) Connect(ctx context.Context) error {
	var lights map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "lights", nil, &lights); err != nil {
		return fmt.Errorf("failed to connect to Hue bridge v1 API: %w", err)
	}

	log.Info().Str("address", c.address).Int("lights", len(lights)).Msg("Connected to Hue bridge")
	return nil
}

// Close closes the client
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Address returns the bridge address
func (c *Client) Address() string {
	return c.address
}

// GetLight returns a light by ID, including its capabilities
func (c *Client) GetLight(ctx context.Context, lightID string) (*Light, error) {
	var light Light
	if err := c.do(ctx, http.MethodGet, "lights/"+lightID, nil, &light); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Type == APIErrorResourceNotFound {
			return nil, fmt.Errorf("%w: %s", ErrLightNotFound, lightID)
		}
		return nil, err
	}
	light.ID = lightID

	return &light, nil
}

// SetLightState sends a state update to a light
func (c *Client) SetLightState(ctx context.Context, lightID string, update LightStateUpdate) error {
	if err := c.do(ctx, http.MethodPut, "lights/"+lightID+"/state", update, nil); err != nil {
		return fmt.Errorf("failed to set light state: %w", err)
	}
	return nil
}

func (c *Client) v1URL(path string) string {
	return fmt.Sprintf("http://%s/api/%s/%s", c.address, c.token, path)
}

func (c *Client) v1Request(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.v1URL(path), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// do performs a v1 request with retries. Transport failures and 5xx responses
// are retried; other statuses and API error items are not.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return err
		}
	}

	return retry.Do(
		func() error {
			var body io.Reader
			if payload != nil {
				body = bytes.NewReader(payload)
			}

			resp, err := c.v1Request(ctx, method, path, body)
			if err != nil {
				if ctx.Err() != nil {
					return retry.Unrecoverable(err)
				}
				return err
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}

			if resp.StatusCode >= 500 {
				return fmt.Errorf("bridge returned status %d", resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
			}
			if apiErr := parseAPIError(data); apiErr != nil {
				return retry.Unrecoverable(apiErr)
			}

			if out != nil {
				if err := json.Unmarshal(data, out); err != nil {
					return retry.Unrecoverable(fmt.Errorf("decode %s: %w", path, err))
				}
			}
			return nil
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Err(err).Str("method", method).Str("path", path).Uint("attempt", n+1).Msg("Retrying Hue request")
		}),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}
