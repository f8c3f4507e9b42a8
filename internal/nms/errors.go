package nms

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Upstream error taxonomy. The pipeline recovers Unavailable/Empty into
// the synthetic fallback path; Malformed records are skipped per record.
var (
	// ErrUnavailable means the NMS backend could not be reached.
	ErrUnavailable = errors.New("nms backend unavailable")
	// ErrTimeout means a request exceeded its deadline.
	ErrTimeout = errors.New("nms request timed out")
	// ErrMalformed means the backend answered with an undecodable body.
	ErrMalformed = errors.New("nms response malformed")
	// ErrEmpty means the backend is reachable but returned zero records.
	// Kept distinct from ErrUnavailable for diagnostics.
	ErrEmpty = errors.New("nms collection empty")
)

// classifyTransportError folds a transport-level failure into the
// taxonomy, preserving the original error for logs.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
