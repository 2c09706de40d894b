package device

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedFrame     = errors.New("malformed frame")
	ErrNotAnObject        = errors.New("element is not an object")
	ErrInvalidField       = errors.New("invalid field")
	ErrMissingKey         = errors.New("missing mac")
	ErrMissingPosition    = errors.New("missing position")
	ErrPositionOutOfRange = errors.New("position out of range")
)

// DecodeError reports a frame that could not be parsed as a list of devices.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrMalformedFrame, e.Err} }

// ValidationError reports one element of a frame that was skipped.
type ValidationError struct {
	Index int
	Key   string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("element %d (%s): %v", e.Index, e.Key, e.Err)
	}
	return fmt.Sprintf("element %d: %v", e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
