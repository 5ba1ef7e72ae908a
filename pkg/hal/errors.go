package hal

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTimeout       = errors.New("timeout")
	ErrWrongMode     = errors.New("operation not allowed in current mode")
	ErrLinkClosed    = errors.New("host link is closed")
	ErrInvalidSample = errors.New("invalid adc sample")
)

// TimeoutError is returned when a hardware condition did not arise in time.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timeout after %s", e.Op, e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
