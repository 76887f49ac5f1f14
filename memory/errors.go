package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRegion is returned when a region would have zero length or
	// the host reports no allocation at an offset.
	ErrInvalidRegion = errors.New("invalid memory region")

	// ErrLengthMismatch is returned when a write payload exceeds the
	// region's capacity.
	ErrLengthMismatch = errors.New("payload exceeds region length")

	// ErrNotOwned is returned when releasing a region the host owns.
	ErrNotOwned = errors.New("region is owned by the host")

	// ErrReleased is returned when a region is used after it was released
	// or handed over to the host.
	ErrReleased = errors.New("region already released")
)

// RegionError records the operation and region an error occurred on.
type RegionError struct {
	Err    error
	Op     string
	Offset uint64
	Length uint64
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("memory %s at offset %d (length %d): %v", e.Op, e.Offset, e.Length, e.Err)
}

func (e *RegionError) Unwrap() error {
	return e.Err
}

func regionError(op string, offset, length uint64, err error) error {
	return &RegionError{Op: op, Offset: offset, Length: length, Err: err}
}
