package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable marks transport-level failures: dial, DNS, TLS, timeouts
	// and truncated bodies. Retried.
	ErrUnreachable = errors.New("remote api unreachable")

	// ErrMalformedEnvelope marks a response that arrived but is not the expected
	// JSON envelope, including HTML pages served after a silent redirect. Retried.
	ErrMalformedEnvelope = errors.New("malformed response envelope")
)

// UpstreamError is an explicit error reported by the remote API. It is never
// retried.
type UpstreamError struct {
	Code    string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error %s: %s", e.Code, e.Message)
	}
	return "upstream error " + e.Code
}

// ExhaustedError is returned once the retry budget is spent. Last is the error
// of the final attempt and stays reachable through errors.Is / errors.As.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("fetch failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// IsUpstream reports whether err carries an *UpstreamError with the given code.
// An empty code matches any upstream error.
func IsUpstream(err error, code string) bool {
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		return false
	}
	return code == "" || ue.Code == code
}

// retryable reports whether an attempt error should be re-issued.
func retryable(err error) bool {
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrMalformedEnvelope)
}
