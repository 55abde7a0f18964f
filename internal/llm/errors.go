package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// GatewayError is a non-2xx response from the provider. Body holds the
// decoded JSON error payload when the body parses, else the raw text.
type GatewayError struct {
	Status int
	Body   any
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("llm api error %d: %v", e.Status, e.Body)
}

// IsTimeout reports whether err is a request timeout. Only timeouts
// are eligible for the single whole-call retry at the caller boundary.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
