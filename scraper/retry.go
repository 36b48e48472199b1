package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig bounds session start attempts
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// StartSession starts a session, retrying failed launches with backoff.
// Lookups themselves are never retried.
func StartSession(ctx context.Context, config RetryConfig, factory SessionFactory) (Session, error) {
	return withRetry(ctx, config, func(ctx context.Context) (Session, error) {
		return factory(ctx)
	})
}

func withRetry[T any](ctx context.Context, config RetryConfig, operation func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := operation(ctx)
		if err == nil {
			return result, nil
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Msg("Session start failed")

		if attempt < config.MaxRetries {
			delay := calculateBackoffDelay(attempt, config.BaseDelay, config.MaxDelay)
			log.Debug().
				Dur("delay", delay).
				Int("next_attempt", attempt+2).
				Msg("Retrying after delay")

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		return zero, fmt.Errorf("session start failed after %d attempts: %w", config.MaxRetries+1, err)
	}
	return zero, fmt.Errorf("unexpected: exceeded retry loop")
}

func calculateBackoffDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	// 2^30 is the largest shift that cannot overflow
	safeAttempt := min(attempt, 30)
	delay := time.Duration(1<<safeAttempt) * baseDelay

	if delay > maxDelay {
		delay = maxDelay
	}

	// jitter between 0.5x and 1.5x
	delay = time.Duration(float64(delay) * (0.5 + rand.Float64()))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
