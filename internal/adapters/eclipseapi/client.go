// Package eclipseapi implements the account, bot and project registries on
// top of the Eclipse Foundation REST APIs.
package eclipseapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = 10 * time.Minute
	maxErrorBody    = 512
)

// Client talks to the account, bot and project APIs. Bot and project listings
// are cached for the configured TTL; account lookups are not cached.
type Client struct {
	accountsURL string
	botsURL     string
	projectsURL string
	token       string
	http        *http.Client
	cacheTTL    time.Duration
	logger      *slog.Logger
	now         func() time.Time

	bots     *listCache[botPayload]
	projects *listCache[projectPayload]
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(cl *Client) {
		if ttl > 0 {
			cl.cacheTTL = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

// New creates a client. Each base URL is the API root, e.g. https://api.eclipse.org.
func New(accountsURL, botsURL, projectsURL string, opts ...Option) *Client {
	c := &Client{
		accountsURL: strings.TrimRight(accountsURL, "/"),
		botsURL:     strings.TrimRight(botsURL, "/"),
		projectsURL: strings.TrimRight(projectsURL, "/"),
		http:        &http.Client{Timeout: defaultTimeout},
		cacheTTL:    defaultCacheTTL,
		logger:      slog.New(slog.DiscardHandler),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.bots = &listCache[botPayload]{ttl: c.cacheTTL, now: c.now}
	c.projects = &listCache[projectPayload]{ttl: c.cacheTTL, now: c.now}
	return c
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("eclipseapi: %s returned %d", e.URL, e.Status)
	}
	return fmt.Sprintf("eclipseapi: %s returned %d: %s", e.URL, e.Status, e.Body)
}

func isStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == code
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("eclipseapi: GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("registry request",
		slog.String("url", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", c.now().Sub(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{URL: endpoint, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("eclipseapi: decode %s: %w", endpoint, err)
	}
	return nil
}
