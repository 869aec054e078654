package index

import "fmt"

// DuplicateIdentityError is returned when an identity is inserted twice.
type DuplicateIdentityError struct {
	ID string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("identity %q already indexed", e.ID)
}

// InvalidThresholdError is returned for a threshold outside [0, Width].
type InvalidThresholdError struct {
	Threshold int
	Width     int
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("invalid threshold %d (must be 0-%d)", e.Threshold, e.Width)
}

// ValidateThreshold checks t against a fingerprint width.
func ValidateThreshold(t, width int) error {
	if t < 0 || t > width {
		return &InvalidThresholdError{Threshold: t, Width: width}
	}
	return nil
}
