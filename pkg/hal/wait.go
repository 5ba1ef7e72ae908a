package hal

import (
	"fmt"
	"time"
)

// WaitUntil spins on cond until it reports true. A zero timeout waits forever.
func WaitUntil(op string, timeout time.Duration, cond func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		done, err := cond()
		if err != nil {
			return fmt.Errorf("failed to poll %s: %w", op, err)
		}
		if done {
			return nil
		}
		if timeout > 0 && time.Now().After(deadline) {
			return &TimeoutError{Op: op, After: timeout}
		}
	}
}
