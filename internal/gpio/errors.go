package gpio

import "errors"

// Domain-specific errors for pin operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrPinNotFound is returned when the driver has no pin by that name.
	ErrPinNotFound = errors.New("gpio: pin not found")

	// ErrPinNotRegistered is returned for events on a pin that was never registered.
	ErrPinNotRegistered = errors.New("gpio: pin not registered")

	// ErrInvalidDirection is returned for directions other than IN and OUT,
	// and for writes to a pin registered as an input.
	ErrInvalidDirection = errors.New("gpio: invalid pin direction")

	// ErrUnsupportedProperty is returned for properties other than PIN_STATE.
	ErrUnsupportedProperty = errors.New("gpio: unsupported pin property")

	// ErrInvalidLevel is returned when an event value is not a logic level.
	ErrInvalidLevel = errors.New("gpio: invalid pin level")

	// ErrUnknownDriver is returned by NewDriver for unsupported driver names.
	ErrUnknownDriver = errors.New("gpio: unknown driver")
)
