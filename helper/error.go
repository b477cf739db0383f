package helper

import "fmt"

// NewError wraps an error with the context of the operation that failed.
// The wrapped error remains inspectable with errors.Is and errors.As.
func NewError(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("error in %s: %w", context, err)
}
