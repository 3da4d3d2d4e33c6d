package pin

import (
	"fmt"
	"strings"
)

// Direction is the electrical direction of a pin.
type Direction string

// Pin directions.
const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Property names the pin attribute a command refers to.
type Property string

// PropertyPinState is the logic level of a pin.
const PropertyPinState Property = "PIN_STATE"

// Action is what the receiver should do with a command.
type Action string

// Actions.
const (
	ActionRegister Action = "REGISTER"
	ActionEvent    Action = "EVENT"

	// ActionUnknown marks a missing or unrecognised action. It never travels
	// on the wire; the original text is kept in Command.RawAction.
	ActionUnknown Action = ""
)

// Level values as sent by App Inventor clients.
const (
	LevelHigh = "HIGH"
	LevelLow  = "LOW"
)

// Command is one pin instruction or report.
type Command struct {
	Name      string
	Direction Direction
	Property  Property
	Value     string
	Action    Action

	// RawAction is the action text as received, kept for logging when
	// Action is ActionUnknown.
	RawAction string
}

// String returns a compact form for log lines.
func (c Command) String() string {
	action := string(c.Action)
	if c.Action == ActionUnknown {
		action = fmt.Sprintf("?%s", c.RawAction)
	}
	return fmt.Sprintf("%s %s %s.%s=%s", action, c.Direction, c.Name, c.Property, c.Value)
}

// parseAction maps wire text to a known Action.
func parseAction(s string) Action {
	switch Action(s) {
	case ActionRegister, ActionEvent:
		return Action(s)
	default:
		return ActionUnknown
	}
}

// ParseLevel interprets a command value as a logic level.
// HIGH/LOW, 1/0 and true/false are accepted in any case.
func ParseLevel(value string) (high bool, err error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case LevelHigh, "1", "TRUE":
		return true, nil
	case LevelLow, "0", "FALSE":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidLevel, value)
	}
}

// LevelString is the wire value for a logic level.
func LevelString(high bool) string {
	if high {
		return LevelHigh
	}
	return LevelLow
}
