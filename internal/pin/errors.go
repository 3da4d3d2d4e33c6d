package pin

import "errors"

var (
	// ErrDecode is returned when a payload is not a usable pin command.
	ErrDecode = errors.New("invalid pin command payload")

	// ErrInvalidLevel is returned by ParseLevel for values that are not a logic level.
	ErrInvalidLevel = errors.New("invalid pin level")
)
