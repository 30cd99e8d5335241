package external

import (
	"context"
	"errors"
	"time"

	"github.com/dom/anivers/internal/logging"
	"github.com/dom/anivers/internal/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

// newBreaker trips after five consecutive provider failures and probes again
// after thirty seconds. Answers the provider gave on purpose (404 and friends)
// do not count as failures.
func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A caller that gave up says nothing about the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || isProviderAnswer(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
