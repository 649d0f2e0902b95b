package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/sony/gobreaker"
)

// HTTPSource fetches channel snapshots from a JSON ad-platform endpoint:
//
//	GET <url>?channel=<id>&period=<YYYY-MM>
//	Authorization: Bearer <token>
//
//	{"spend": 1234.5, "conversions": 80, "revenue": 4100}
//
// Transient failures are retried with exponential backoff and jitter.
// Repeated failed fetches open a circuit breaker so a dead platform is
// not hammered every cycle.
type HTTPSource struct {
	url     string
	token   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
	now     func() time.Time

	retries   int
	baseDelay time.Duration
}

// HTTPSourceOption configures an HTTPSource.
type HTTPSourceOption func(*HTTPSource)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPSourceOption {
	return func(s *HTTPSource) { s.client = c }
}

// WithRetry sets the retry count and the base backoff delay.
func WithRetry(retries int, baseDelay time.Duration) HTTPSourceOption {
	return func(s *HTTPSource) {
		s.retries = retries
		s.baseDelay = baseDelay
	}
}

// WithClock sets the clock used to pick the requested period.
func WithClock(now func() time.Time) HTTPSourceOption {
	return func(s *HTTPSource) { s.now = now }
}

// NewHTTPSource creates a source for the endpoint at rawURL.
func NewHTTPSource(name, rawURL, token string, logger *slog.Logger, opts ...HTTPSourceOption) *HTTPSource {
	s := &HTTPSource{
		url:       rawURL,
		token:     token,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger,
		now:       time.Now,
		retries:   2,
		baseDelay: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Hour,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("channel source breaker state changed",
				"source", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return s
}

// FetchChannelSnapshot implements SnapshotSource.
func (s *HTTPSource) FetchChannelSnapshot(ctx context.Context, channelID string) (model.ChannelSnapshot, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetchWithRetry(ctx, channelID)
	})
	if err != nil {
		return model.ChannelSnapshot{}, fmt.Errorf("fetch channel %q: %w", channelID, err)
	}
	return out.(model.ChannelSnapshot), nil
}

// BreakerState reports the circuit breaker state ("closed", "open", "half-open").
func (s *HTTPSource) BreakerState() string {
	return s.breaker.State().String()
}

func (s *HTTPSource) fetchWithRetry(ctx context.Context, channelID string) (model.ChannelSnapshot, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<(attempt-1)) * s.baseDelay
			delay += time.Duration(rand.Int64N(int64(s.baseDelay) + 1))
			select {
			case <-ctx.Done():
				return model.ChannelSnapshot{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		snap, err := s.fetch(ctx, channelID)
		if err == nil {
			return snap, nil
		}
		lastErr = err

		var pe *permanentError
		if errors.As(err, &pe) {
			return model.ChannelSnapshot{}, err
		}
		s.logger.Debug("channel fetch failed, retrying",
			"channel", channelID,
			"attempt", attempt+1,
			"error", err,
		)
	}
	return model.ChannelSnapshot{}, lastErr
}

type snapshotResponse struct {
	Spend       float64 `json:"spend"`
	Conversions int64   `json:"conversions"`
	Revenue     float64 `json:"revenue"`
}

func (s *HTTPSource) fetch(ctx context.Context, channelID string) (model.ChannelSnapshot, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return model.ChannelSnapshot{}, &permanentError{fmt.Errorf("parse source url: %w", err)}
	}
	q := u.Query()
	q.Set("channel", channelID)
	q.Set("period", model.PeriodOf(s.now()))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.ChannelSnapshot{}, &permanentError{fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return model.ChannelSnapshot{}, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		err := fmt.Errorf("source returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return model.ChannelSnapshot{}, &permanentError{err}
		}
		return model.ChannelSnapshot{}, err
	}

	var body snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.ChannelSnapshot{}, &permanentError{fmt.Errorf("decode snapshot: %w", err)}
	}
	if body.Spend < 0 || body.Conversions < 0 || body.Revenue < 0 {
		return model.ChannelSnapshot{}, &permanentError{fmt.Errorf("negative metrics in snapshot")}
	}

	return model.NewChannelSnapshot(channelID, body.Spend, body.Conversions, body.Revenue), nil
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }
