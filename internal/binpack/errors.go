package binpack

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCapacity is returned when a bin capacity is not a positive integer.
	ErrInvalidCapacity = errors.New("capacity must be a positive integer")
	// ErrNegativeSize is returned when an item reports a size below zero.
	ErrNegativeSize = errors.New("item size must be a non-negative integer")
	// ErrOversizedItem is returned when an item cannot fit even into an empty bin.
	ErrOversizedItem = errors.New("item size exceeds bin capacity")
)

// ItemError identifies a single input item rejected before packing.
type ItemError struct {
	Index    int
	Label    string
	Size     int64
	Capacity int64
	Err      error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s (input #%d, size %d, capacity %d): %v", e.Label, e.Index, e.Size, e.Capacity, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// ItemErrors flattens an error returned by FirstFitDecreasing, possibly
// wrapped, into the per-item failures it carries. Errors that are not item
// failures are ignored.
func ItemErrors(err error) []*ItemError {
	errs := []error{err}
	var group interface{ Errors() []error }
	if errors.As(err, &group) {
		errs = group.Errors()
	}

	var out []*ItemError
	for _, e := range errs {
		var itemErr *ItemError
		if errors.As(e, &itemErr) {
			out = append(out, itemErr)
		}
	}
	return out
}
