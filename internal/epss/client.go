// Package epss looks up exploit prediction scores from the FIRST EPSS API.
package epss

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	DefaultURL = "https://api.first.org/data/v1/epss"

	// The API accepts a comma separated list of CVEs per request.
	batchSize = 100
)

// StatusError is returned for a non-200 response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("epss returned status %d: %s", e.Code, e.Body)
}

// Temporary reports whether the request may succeed when retried.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client queries the FIRST EPSS API.
type Client struct {
	BaseURL         string
	MaxRetries      int
	InitialInterval time.Duration
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// Options configures NewClient. Zero values select the defaults.
type Options struct {
	URL        string
	MaxRetries int
	Timeout    time.Duration
	Logger     *slog.Logger
}

// NewClient creates a new EPSS client.
func NewClient(opts Options) *Client {
	c := &Client{
		BaseURL:         opts.URL,
		MaxRetries:      opts.MaxRetries,
		InitialInterval: 500 * time.Millisecond,
		Logger:          opts.Logger,
		HTTPClient:      &http.Client{Timeout: opts.Timeout},
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultURL
	}
	if c.HTTPClient.Timeout <= 0 {
		c.HTTPClient.Timeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

type response struct {
	Status string `json:"status"`
	Data   []struct {
		CVE  string `json:"cve"`
		EPSS string `json:"epss"`
	} `json:"data"`
}

// Lookup returns the EPSS probability (0 to 1) of each CVE the API knows. CVEs the
// API has no score for are absent from the result.
func (c *Client) Lookup(ctx context.Context, cves []string) (map[string]float64, error) {
	scores := make(map[string]float64, len(cves))
	cves = dedupe(cves)
	for start := 0; start < len(cves); start += batchSize {
		end := min(start+batchSize, len(cves))
		if err := c.lookupWithRetry(ctx, cves[start:end], scores); err != nil {
			return nil, err
		}
	}
	c.Logger.Debug("EPSS lookup complete", "requested", len(cves), "scored", len(scores))
	return scores, nil
}

func (c *Client) lookupWithRetry(ctx context.Context, batch []string, scores map[string]float64) error {
	bo := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		bo.InitialInterval = c.InitialInterval
	}
	bo.MaxElapsedTime = 0

	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries)), ctx)

	return backoff.RetryNotify(func() error {
		err := c.lookup(ctx, batch, scores)
		if err == nil {
			return nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		c.Logger.Warn("Retrying EPSS request", "cves", len(batch), "wait", wait, "error", err)
	})
}

func (c *Client) lookup(ctx context.Context, batch []string, scores map[string]float64) error {
	u := c.BaseURL + "?" + url.Values{"cve": {strings.Join(batch, ",")}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if r.Status != "OK" {
		return backoff.Permanent(fmt.Errorf("epss returned status %q", r.Status))
	}

	for _, d := range r.Data {
		f, err := strconv.ParseFloat(d.EPSS, 64)
		if err != nil {
			c.Logger.Debug("Skipping unparsable EPSS value", "cve", d.CVE, "epss", d.EPSS)
			continue
		}
		scores[d.CVE] = f
	}
	return nil
}

func dedupe(cves []string) []string {
	seen := make(map[string]bool, len(cves))
	out := make([]string, 0, len(cves))
	for _, c := range cves {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Icon returns the marker shown next to an EPSS probability.
func Icon(p float64) string {
	switch {
	case p >= 0.5:
		return "🔴"
	case p >= 0.1:
		return "🟡"
	default:
		return "🔵"
	}
}
