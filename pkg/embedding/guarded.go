package embedding

import (
	"context"
	"fmt"
	"log"
	"time"

	"docrag-be/internal/apperror"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

type GuardOptions struct {
	Name string
	// RequestsPerSecond <= 0 disables rate limiting.
	RequestsPerSecond float64
	Burst             int
	// Dimensions > 0 rejects vectors of any other length.
	Dimensions int
}

// Guarded wraps a provider with a rate limiter, a circuit breaker, and a
// dimensionality check. Every failure leaves as an apperror Embedding error.
type Guarded struct {
	next       EmbeddingProvider
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	dimensions int
}

var _ EmbeddingProvider = (*Guarded)(nil)

func NewGuarded(next EmbeddingProvider, opts GuardOptions) *Guarded {
	if opts.Name == "" {
		opts.Name = "EmbeddingProvider"
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RequestsPerSecond)
			if burst < 1 {
				burst = 1
			}
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Guarded{
		next:       next,
		breaker:    breaker,
		limiter:    limiter,
		dimensions: opts.Dimensions,
	}
}

func (g *Guarded) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, apperror.Embedding("Embedding rate limit wait aborted", err)
		}
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Generate(ctx, text, taskType)
	})
	if err != nil {
		return nil, apperror.Embedding("Failed to generate embedding", err)
	}

	resp, ok := result.(*EmbeddingResponse)
	if !ok || resp == nil {
		return nil, apperror.Embedding("Embedding provider returned no vector", nil)
	}

	if g.dimensions > 0 && len(resp.Embedding.Values) != g.dimensions {
		return nil, apperror.Wrap(apperror.KindEmbedding, apperror.CodeEmbeddingDimension,
			fmt.Sprintf("Expected %d dimensions, got %d", g.dimensions, len(resp.Embedding.Values)), nil)
	}

	return resp, nil
}
