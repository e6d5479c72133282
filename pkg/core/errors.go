package core

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is returned when a loader hands over something that is
// neither a record array nor a record-shaped object.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInput wraps ErrMalformedInput with a human readable reason.
func MalformedInput(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, a...))
}

// ErrUnknownDataset is returned by store operations addressed to an owner
// that has no dataset.
var ErrUnknownDataset = errors.New("unknown dataset")

// ErrUnknownField is returned when a field id is not part of the merged
// configuration.
var ErrUnknownField = errors.New("unknown field")
