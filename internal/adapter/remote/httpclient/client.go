// Package httpclient talks to the sync API served by cmd/syncd.
package httpclient

import (
	"bytes"
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

	"github.com/heartmarshall/myquran/internal/domain"
)

// tokenSource supplies the bearer token for each request.
type tokenSource interface {
	Token() string
}

// Client implements the sync engine's remote store over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     tokenSource
	log        *slog.Logger
	retryDelay time.Duration
}

// New creates a Client for the API at baseURL (for example
// "https://sync.example.com"). Per-call deadlines come from the context.
func New(baseURL string, tokens tokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/v1/records/",
		httpClient: &http.Client{Timeout: 60 * time.Second},
		tokens:     tokens,
		log:        logger.With("adapter", "httpclient"),
		retryDelay: 500 * time.Millisecond,
	}
}

type listResponse struct {
	Records []domain.RemoteRecord `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Create stores a new record.
func (c *Client) Create(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error) {
	var out domain.RemoteRecord
	err := c.do(ctx, http.MethodPost, c.kindURL(rec.Kind, ""), nil, rec, &out)
	return out, err
}

// Update overwrites the record identified by rec.RemoteID.
func (c *Client) Update(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error) {
	var out domain.RemoteRecord
	err := c.do(ctx, http.MethodPut, c.kindURL(rec.Kind, url.PathEscape(rec.RemoteID)), nil, rec, &out)
	return out, err
}

// SoftDelete marks a record deleted at version.
func (c *Client) SoftDelete(ctx context.Context, kind domain.EntityKind, remoteID string, version int64) error {
	q := url.Values{"version": {strconv.FormatInt(version, 10)}}
	return c.do(ctx, http.MethodDelete, c.kindURL(kind, url.PathEscape(remoteID)), q, nil, nil)
}

// FindByNaturalKey looks up the live record with the given natural key.
func (c *Client) FindByNaturalKey(ctx context.Context, kind domain.EntityKind, naturalKey string) (domain.RemoteRecord, bool, error) {
	var out domain.RemoteRecord
	err := c.do(ctx, http.MethodGet, c.kindURL(kind, "by-key"), url.Values{"key": {naturalKey}}, nil, &out)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.RemoteRecord{}, false, nil
	}
	if err != nil {
		return domain.RemoteRecord{}, false, err
	}
	return out, true, nil
}

// ListUpdatedSince returns records changed at or after since.
func (c *Client) ListUpdatedSince(ctx context.Context, kind domain.EntityKind, since time.Time) ([]domain.RemoteRecord, error) {
	var q url.Values
	if !since.IsZero() {
		q = url.Values{"since": {since.UTC().Format(time.RFC3339Nano)}}
	}
	var out listResponse
	if err := c.do(ctx, http.MethodGet, c.kindURL(kind, ""), q, nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

func (c *Client) kindURL(kind domain.EntityKind, suffix string) string {
	u := c.baseURL + url.PathEscape(kind.String())
	if suffix != "" {
		u += "/" + suffix
	}
	return u
}

// do sends one request and decodes the answer into out. Idempotent methods
// get a single retry on 5xx or network errors.
func (c *Client) do(ctx context.Context, method, rawURL string, query url.Values, body, out any) error {
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpclient: encode body: %w", err)
		}
	}

	resp, err := c.send(ctx, method, rawURL, payload)
	if err != nil && retryable(err) && method != http.MethodPost && ctx.Err() == nil {
		c.log.WarnContext(ctx, "httpclient retry",
			slog.String("method", method),
			slog.String("url", rawURL),
			slog.String("reason", err.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("httpclient: %s %s: %w", method, rawURL, ctx.Err())
		case <-time.After(c.retryDelay):
		}
		resp, err = c.send(ctx, method, rawURL, payload)
	}
	if err != nil {
		return fmt.Errorf("httpclient: %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpclient: decode %s %s: %w", method, rawURL, err)
	}
	return nil
}

// send performs a single attempt. A non-2xx answer is returned as an error
// wrapping the matching domain sentinel; transient failures wrap ErrUnavailable.
func (c *Client) send(ctx context.Context, method, rawURL string, payload []byte) (*http.Response, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	var apiErr errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
	return nil, statusError(resp.StatusCode, apiErr.Error)
}

// retryable reports whether a failed attempt may succeed when repeated.
func retryable(err error) bool {
	return errors.Is(err, domain.ErrUnavailable)
}

func statusError(status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	var sentinel error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = domain.ErrUnauthorized
	case status == http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case status == http.StatusConflict:
		sentinel = domain.ErrAlreadyExists
	case status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge:
		sentinel = domain.ErrValidation
	case status == http.StatusTooManyRequests || status >= 500:
		sentinel = domain.ErrUnavailable
	default:
		return fmt.Errorf("unexpected status %d: %s", status, msg)
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, status, msg)
}
