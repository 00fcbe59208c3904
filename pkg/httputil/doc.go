// Package httputil provides retry helpers for outbound HTTP requests.
//
// # Retry
//
// [Retry] re-runs an operation while it keeps failing with a
// [RetryableError], doubling the delay after each attempt:
//
//	err := httputil.Retry(ctx, 3, 500*time.Millisecond, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
//
// Callers decide what is transient. The document fetcher treats network
// failures, 429 and 5xx responses as retryable and everything else (404,
// oversized bodies, bad URLs) as final.
package httputil
