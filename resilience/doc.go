// Package resilience provides the retry, timeout and failure classification
// used for every backend call the client core makes.
//
// # Classification
//
// IsRetryable splits failures into two classes. Errors carrying a 4xx status
// (via StatusCoder) and caller cancellation are permanent and never retried.
// 5xx statuses, ErrTimeout, deadline expiry and transport errors are
// transient.
//
// # Usage
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        Retries: 3,
//	        Base:    time.Second,
//	        Backoff: resilience.BackoffExponential,
//	    })),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callBackend(ctx)
//	})
package resilience
