package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"SMCSentinel/internal/model"
)

// RetryPolicy configures ResilientFetcher.
type RetryPolicy struct {
	RequestsPerSecond float64
	MaxRetries        uint64
	InitialInterval   time.Duration
	MaxInterval       time.Duration
	// BreakerFailures is the number of consecutive failed fetches that opens
	// the circuit; BreakerTimeout is how long it stays open.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// DefaultRetryPolicy returns the production policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		RequestsPerSecond: 2,
		MaxRetries:        3,
		InitialInterval:   500 * time.Millisecond,
		MaxInterval:       10 * time.Second,
		BreakerFailures:   5,
		BreakerTimeout:    60 * time.Second,
	}
}

// ResilientFetcher wraps a Fetcher with rate limiting, exponential backoff
// retries and a circuit breaker. Errors that cannot improve on retry
// (bad input, 4xx responses, an open breaker) are returned immediately.
type ResilientFetcher struct {
	next    Fetcher
	policy  RetryPolicy
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewResilientFetcher wraps next with policy.
func NewResilientFetcher(next Fetcher, policy RetryPolicy) *ResilientFetcher {
	limit := rate.Inf
	if policy.RequestsPerSecond > 0 {
		limit = rate.Limit(policy.RequestsPerSecond)
	}
	failures := policy.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	logger := log.With().Str("component", "collector").Str("source", next.Name()).Logger()

	st := gobreaker.Settings{Name: next.Name()}
	st.Interval = 60 * time.Second
	st.Timeout = policy.BreakerTimeout
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= failures
	}
	st.IsSuccessful = func(err error) bool {
		// bad data and cancellations say nothing about source health
		return err == nil || errors.Is(err, model.ErrInvalidInput) ||
			errors.Is(err, model.ErrInsufficientData) || errors.Is(err, context.Canceled)
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
	}

	return &ResilientFetcher{
		next:    next,
		policy:  policy,
		limiter: rate.NewLimiter(limit, 1),
		breaker: gobreaker.NewCircuitBreaker(st),
		logger:  logger,
	}
}

func (f *ResilientFetcher) Name() string { return f.next.Name() }

// FetchBars implements Fetcher.
func (f *ResilientFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Candle, error) {
	var bars []model.Candle
	attempt := 0
	operation := func() error {
		attempt++
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		res, err := f.breaker.Execute(func() (interface{}, error) {
			return f.next.FetchBars(ctx, symbol, tf, count)
		})
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			f.logger.Debug().Err(err).Str("symbol", symbol).Str("timeframe", string(tf)).
				Int("attempt", attempt).Msg("fetch failed, retrying")
			return err
		}
		bars = res.([]model.Candle)
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	if f.policy.InitialInterval > 0 {
		eb.InitialInterval = f.policy.InitialInterval
	}
	if f.policy.MaxInterval > 0 {
		eb.MaxInterval = f.policy.MaxInterval
	}
	eb.MaxElapsedTime = 0
	var b backoff.BackOff = backoff.WithMaxRetries(eb, f.policy.MaxRetries)

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("%s %s: %w", symbol, tf, err)
	}
	return bars, nil
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrInsufficientData),
		errors.Is(err, model.ErrConfiguration):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}
