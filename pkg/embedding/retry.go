package embedding

import (
	"context"
	"math"
	"time"
)

// Retry wraps a Client with bounded retries and exponential backoff. The
// engine treats a batch that still fails after the last attempt as
// degraded, never fatal.
type Retry struct {
	inner      Client
	maxRetries int
	baseDelay  time.Duration
}

func NewRetry(inner Client, maxRetries int) *Retry {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Retry{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  100 * time.Millisecond,
	}
}

func (r *Retry) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		vec, err := r.inner.GetEmbeddings(ctx, texts)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		// Don't wait after the last attempt
		if attempt < r.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoffDelay(attempt)):
			}
		}
	}

	return nil, lastErr
}

func (r *Retry) backoffDelay(attempt int) time.Duration {
	// Exponential backoff: baseDelay * 2^attempt with some jitter
	delay := float64(r.baseDelay) * math.Pow(2, float64(attempt))

	// Add up to 25% jitter to avoid thundering herd
	jitter := delay * 0.25 * (0.5 - (float64(time.Now().UnixNano()%1000) / 1000))

	return time.Duration(delay + jitter)
}
