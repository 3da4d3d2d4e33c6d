package gpio

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Pin is a single GPIO line as the Controller needs it.
type Pin interface {
	// Name is the driver's name for the line.
	Name() string

	// ConfigureInput switches the line to input. With watch set the driver
	// arms edge detection for WaitForEdge.
	ConfigureInput(watch bool) error

	// ConfigureOutput switches the line to output at the given level.
	ConfigureOutput(high bool) error

	Read() (high bool, err error)
	Write(high bool) error

	// WaitForEdge blocks until the level changes or timeout elapses and
	// reports whether an edge was seen.
	WaitForEdge(timeout time.Duration) bool

	// Halt releases the line and leaves it in a safe state.
	Halt() error
}

// Driver opens pins by the names App Inventor clients send.
type Driver interface {
	Name() string
	Open(name string) (Pin, error)
	Close() error
}

// Driver names accepted by NewDriver.
const (
	DriverPeriph = "periph"
	DriverRPIO   = "rpio"
)

// NewDriver initialises the named driver.
func NewDriver(name string) (Driver, error) {
	switch strings.ToLower(name) {
	case DriverPeriph, "":
		return NewPeriphDriver()
	case DriverRPIO:
		return NewRPIODriver()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}
}

// candidateNames lists the spellings tried for a client pin name.
// App Inventor boards send "GPIO_34"; periph registers "GPIO34".
func candidateNames(name string) []string {
	names := []string{name}
	if compact := strings.ReplaceAll(name, "_", ""); compact != name {
		names = append(names, compact)
	}
	if upper := strings.ToUpper(name); upper != name {
		names = append(names, upper, strings.ReplaceAll(upper, "_", ""))
	}
	return names
}

// lineNumber extracts the trailing decimal number of a pin name:
// "GPIO_17", "BCM17" and "17" all give 17.
func lineNumber(name string) (int, error) {
	end := len(name)
	start := end
	for start > 0 && unicode.IsDigit(rune(name[start-1])) {
		start--
	}
	if start == end {
		return 0, fmt.Errorf("%w: %q has no line number", ErrPinNotFound, name)
	}
	n, err := strconv.Atoi(name[start:end])
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrPinNotFound, name, err)
	}
	return n, nil
}
