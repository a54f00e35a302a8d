package transport

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds the transparent retry applied by DoRetry.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy suits interactive fetches: a couple of quick retries,
// never long enough to stall the UI.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// DoRetry executes the request, retrying transient failures (network errors
// and 5xx statuses) with exponential backoff. Aborts and non-5xx statuses
// are never retried.
func (c *Client) DoRetry(ctx context.Context, req Request, policy RetryPolicy) (*Response, error) {
	operation := func() (*Response, error) {
		resp, err := c.Do(ctx, req)
		if err != nil {
			if IsAborted(err) {
				return nil, backoff.Permanent(err)
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.Status < 500 {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return resp, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialInterval
	bo.MaxInterval = policy.MaxInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(policy.MaxTries),
	)
}
