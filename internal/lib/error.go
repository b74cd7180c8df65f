package lib

import "fmt"

// WrapError wraps a detail error into a sentinel error, so the result
// matches errors.Is for both of them
func WrapError(sentinel error, detail error) error {
	return fmt.Errorf("%w: %w", sentinel, detail)
}
