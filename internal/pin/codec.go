package pin

import (
	"encoding/json"
	"fmt"
)

// wireCommand is the JSON shape used by the App Inventor extension.
type wireCommand struct {
	Direction string `json:"mDirection"`
	Name      string `json:"mName"`
	Property  string `json:"mProperty"`
	Value     string `json:"mValue"`
	Action    string `json:"mAction"`
}

// Decode parses a raw MQTT payload into a Command.
//
// Malformed JSON and a missing mName both fail with ErrDecode. An absent or
// unknown mAction is not an error: the command decodes with ActionUnknown so
// the caller can log and drop it. Direction, property and value are kept
// exactly as sent.
func Decode(payload []byte) (Command, error) {
	var w wireCommand
	if err := json.Unmarshal(payload, &w); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if w.Name == "" {
		return Command{}, fmt.Errorf("%w: missing mName", ErrDecode)
	}

	return Command{
		Name:      w.Name,
		Direction: Direction(w.Direction),
		Property:  Property(w.Property),
		Value:     w.Value,
		Action:    parseAction(w.Action),
		RawAction: w.Action,
	}, nil
}

// Encode renders cmd in the wire shape Decode accepts.
func Encode(cmd Command) ([]byte, error) {
	action := string(cmd.Action)
	if cmd.Action == ActionUnknown {
		action = cmd.RawAction
	}

	data, err := json.Marshal(wireCommand{
		Direction: string(cmd.Direction),
		Name:      cmd.Name,
		Property:  string(cmd.Property),
		Value:     cmd.Value,
		Action:    action,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding pin command: %w", err)
	}
	return data, nil
}
