// Package provider holds what every external quote and FX adapter shares:
// the HTTP client, the per-symbol batching wrapper and the source registry.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"networth/internal/domain"
	"networth/internal/metrics"
)

// StatusError is a non-2xx answer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 from the upstream.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client is a rate limited HTTP client for one provider. Transient failures
// are retried once, immediately.
type Client struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
	headers map[string]string
}

// NewClient bounds every call by timeout. perMinute <= 0 disables limiting.
func NewClient(name string, timeout time.Duration, perMinute int) *Client {
	c := &Client{
		name:    name,
		http:    &http.Client{Timeout: timeout},
		headers: map[string]string{"Accept": "application/json", "User-Agent": "networth/1.0"},
	}
	if perMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	return c
}

func (c *Client) Name() string { return c.name }

// SetHeader adds a header sent with every request.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Get returns the body of a 2xx answer. Every failure except a 404 wraps
// domain.ErrSourceUnavailable.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	body, err := c.do(ctx, url)
	if err != nil && transient(ctx, err) {
		metrics.ProviderRequests.WithLabelValues(c.name, "retry").Inc()
		log.Debug().Str("source", c.name).Err(err).Msg("retrying request")
		body, err = c.do(ctx, url)
	}
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(c.name, "error").Inc()
		if IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, c.name, err)
	}
	metrics.ProviderRequests.WithLabelValues(c.name, "ok").Inc()
	return body, nil
}

// GetJSON decodes a 2xx answer into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: decode: %w", domain.ErrSourceUnavailable, c.name, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

// transient covers network errors and 5xx answers. A cancelled or expired
// caller context is never retried.
func transient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne) || errors.Is(err, io.ErrUnexpectedEOF)
}
