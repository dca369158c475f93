// Package feed fetches vulnerability records from the ENISA EUVD API.
package feed

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
	"time"

	"euvdalert/internal/record"
	"euvdalert/internal/severity"

	"github.com/cenkalti/backoff"
)

const (
	DefaultURL      = "https://euvdservices.enisa.europa.eu/api/vulnerabilities"
	DefaultPageSize = 100

	// The API rejects requests without a browser-like agent.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0"

	dateLayout = "2006-01-02"
)

// StatusError is returned for a non-200 response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed returned status %d: %s", e.Code, e.Body)
}

// Temporary reports whether the request may succeed when retried.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client handles EUVD API interactions.
type Client struct {
	BaseURL    string
	PageSize   int
	UserAgent  string
	MaxRetries int
	// InitialInterval is the first retry delay; later delays grow exponentially.
	InitialInterval time.Duration
	// DeriveScores fills a missing base score from the CVSS vector.
	DeriveScores bool
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// Options configures NewClient. Zero values select the defaults.
type Options struct {
	URL          string
	PageSize     int
	MaxRetries   int
	Timeout      time.Duration
	DeriveScores bool
	Logger       *slog.Logger
}

// NewClient creates a new EUVD client.
func NewClient(opts Options) *Client {
	c := &Client{
		BaseURL:         opts.URL,
		PageSize:        opts.PageSize,
		UserAgent:       DefaultUserAgent,
		MaxRetries:      opts.MaxRetries,
		InitialInterval: 500 * time.Millisecond,
		DeriveScores:    opts.DeriveScores,
		Logger:          opts.Logger,
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultURL
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.HTTPClient.Timeout <= 0 {
		c.HTTPClient.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

type page struct {
	Items []record.Record `json:"items"`
	Total int             `json:"total"`
}

// Window returns the UTC date range ending today and starting days before it.
func Window(now time.Time, days int) (from, to time.Time) {
	if days <= 0 {
		days = 1
	}
	to = now.UTC().Truncate(24 * time.Hour)
	from = to.AddDate(0, 0, -days)
	return from, to
}

// Fetch returns every record updated between from and to (dates, inclusive), walking
// the pages until an empty page or until the announced total is reached.
// Any page that still fails after the retries aborts the whole fetch.
func (c *Client) Fetch(ctx context.Context, from, to time.Time) ([]record.Record, error) {
	fromDate, toDate := from.Format(dateLayout), to.Format(dateLayout)
	c.Logger.Info("Fetching vulnerabilities", "from", fromDate, "to", toDate)

	var all []record.Record
	for n := 0; ; n++ {
		p, err := c.fetchPageWithRetry(ctx, fromDate, toDate, n)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", n, err)
		}
		c.Logger.Info("Fetched page", "page", n+1, "entries", len(p.Items), "total", p.Total)

		if len(p.Items) == 0 {
			break
		}
		all = append(all, p.Items...)
		if len(all) >= p.Total {
			break
		}
	}

	if c.DeriveScores {
		derived := DeriveScores(all, c.Logger)
		if derived > 0 {
			c.Logger.Info("Derived base scores from CVSS vectors", "count", derived)
		}
	}

	c.Logger.Info("Fetch complete", "records", len(all))
	return all, nil
}

func (c *Client) fetchPageWithRetry(ctx context.Context, from, to string, n int) (page, error) {
	var p page

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

	err := backoff.RetryNotify(func() error {
		var err error
		p, err = c.fetchPage(ctx, from, to, n)
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
		c.Logger.Warn("Retrying feed request", "page", n, "wait", wait, "error", err)
	})
	return p, err
}

func (c *Client) fetchPage(ctx context.Context, from, to string, n int) (page, error) {
	q := url.Values{}
	q.Set("fromDate", from)
	q.Set("toDate", to)
	q.Set("page", strconv.Itoa(n))
	q.Set("size", strconv.Itoa(c.PageSize))
	u := c.BaseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return page{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return page{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	c.Logger.Debug("Feed response", "url", u, "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return page{}, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return page{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return p, nil
}

// DeriveScores sets the base score of records that have none (absent, unparsable or
// zero) but carry a CVSS vector, and returns how many were filled.
func DeriveScores(records []record.Record, logger *slog.Logger) int {
	n := 0
	for i := range records {
		r := &records[i]
		if r.BaseScoreVector == "" {
			continue
		}
		if score, err := r.BaseScore.Float(); err == nil && score > 0 {
			continue
		}
		score, err := severity.ScoreFromVector(r.BaseScoreVector)
		if err != nil {
			logger.Debug("Cannot score vector", "id", r.ID, "vector", r.BaseScoreVector, "error", err)
			continue
		}
		r.BaseScore = record.ScoreOf(score)
		n++
	}
	return n
}
