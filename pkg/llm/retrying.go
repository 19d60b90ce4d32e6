package llm

import (
	"context"
	"errors"

	"docrag-be/pkg/httpjson"
	"docrag-be/pkg/retry"
)

// Retrying re-issues a call while the backend answers 429 or 5xx.
// Any other failure is returned on the first attempt.
type Retrying struct {
	inner  LLMProvider
	policy retry.Policy
}

var _ LLMProvider = (*Retrying)(nil)

func NewRetrying(inner LLMProvider, policy retry.Policy) *Retrying {
	return &Retrying{inner: inner, policy: policy}
}

func transient(err error) bool {
	var statusErr *httpjson.StatusError
	return errors.As(err, &statusErr) && statusErr.Retryable()
}

func (r *Retrying) Chat(ctx context.Context, history []Message, opts ...Option) (string, error) {
	return retry.Do(ctx, r.policy, transient, func(ctx context.Context) (string, error) {
		return r.inner.Chat(ctx, history, opts...)
	})
}

func (r *Retrying) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	return retry.Do(ctx, r.policy, transient, func(ctx context.Context) (string, error) {
		return r.inner.Generate(ctx, prompt, opts...)
	})
}
