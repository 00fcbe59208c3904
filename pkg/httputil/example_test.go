package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/sldview/pkg/httputil"
)

func ExampleRetry() {
	attempt := 0
	err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
		attempt++
		if attempt < 3 {
			return &httputil.RetryableError{Err: errors.New("503 Service Unavailable")}
		}
		return nil
	})
	fmt.Println("Attempts:", attempt)
	fmt.Println("Error:", err)
	// Output:
	// Attempts: 3
	// Error: <nil>
}
