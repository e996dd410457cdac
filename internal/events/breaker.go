package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/libops/articlebot/internal/metrics"
)

const (
	// breakerFailureThreshold consecutive publish failures open the breaker.
	breakerFailureThreshold = 5
	// breakerOpenTimeout is how long the breaker stays open before probing.
	breakerOpenTimeout = 30 * time.Second
)

// newPublishBreaker builds the circuit breaker guarding publishes to one topic.
// A caller giving up (context canceled) is not counted against the topic.
func newPublishBreaker(topicID string) *gobreaker.CircuitBreaker[string] {
	return gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "pubsub-publish-" + topicID,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Publish circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			metrics.SetPublishBreakerState(int(to))
		},
	})
}
