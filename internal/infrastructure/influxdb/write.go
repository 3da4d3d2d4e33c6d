package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gpio-companion/internal/pin"
)

// measurementPinEvents holds one point per applied or reported pin event.
const measurementPinEvents = "pin_events"

// RecordPinEvent writes cmd as a pin_events point for board.
//
// Tags are board, pin, direction and action. The raw value is always
// stored; a level field (1 or 0) is added when the value is a logic level so
// pin activity can be graphed directly.
func (c *Client) RecordPinEvent(board string, cmd pin.Command) {
	c.WritePinEvent(board, cmd, time.Now())
}

// WritePinEvent is RecordPinEvent with an explicit timestamp.
func (c *Client) WritePinEvent(board string, cmd pin.Command, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(pinEventPoint(board, cmd, at))
}

func pinEventPoint(board string, cmd pin.Command, at time.Time) *write.Point {
	fields := map[string]interface{}{
		"value": cmd.Value,
	}
	if high, err := pin.ParseLevel(cmd.Value); err == nil {
		level := 0
		if high {
			level = 1
		}
		fields["level"] = level
	}

	return write.NewPoint(
		measurementPinEvents,
		map[string]string{
			"board":     board,
			"pin":       cmd.Name,
			"direction": string(cmd.Direction),
			"action":    string(cmd.Action),
		},
		fields,
		at,
	)
}
