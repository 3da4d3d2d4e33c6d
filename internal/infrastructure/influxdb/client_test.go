package influxdb

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gpio-companion/internal/infrastructure/config"
	"github.com/nerrad567/gpio-companion/internal/pin"
)

// fakeWriter captures points instead of sending them.
type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (w *fakeWriter) WritePoint(p *write.Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = append(w.points, p)
}

func (w *fakeWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushes++
}

func newTestClient() (*Client, *fakeWriter) {
	w := &fakeWriter{}
	return &Client{writer: w, connected: true}, w
}

func lineProtocol(p *write.Point) string {
	return write.PointToLineProtocol(p, time.Nanosecond)
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:59999",
		Bucket:  "pins",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestRecordPinEvent(t *testing.T) {
	c, w := newTestClient()

	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	c.WritePinEvent("board-1", pin.Command{
		Name:      "GPIO_34",
		Direction: pin.DirectionOut,
		Property:  pin.PropertyPinState,
		Value:     "HIGH",
		Action:    pin.ActionEvent,
	}, at)

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	line := lineProtocol(w.points[0])

	for _, want := range []string{
		"pin_events,",
		"board=board-1",
		"pin=GPIO_34",
		"direction=OUT",
		"action=EVENT",
		`value="HIGH"`,
		"level=1i",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(line), strconv.FormatInt(at.UnixNano(), 10)) {
		t.Errorf("line %q has wrong timestamp", line)
	}
}

func TestRecordPinEvent_NonLevelValue(t *testing.T) {
	c, w := newTestClient()

	c.RecordPinEvent("board-1", pin.Command{Name: "GPIO_34", Value: "42", Action: pin.ActionEvent})

	line := lineProtocol(w.points[0])
	if strings.Contains(line, "level=") {
		t.Errorf("line %q should not carry a level field", line)
	}
	if !strings.Contains(line, `value="42"`) {
		t.Errorf("line %q missing raw value", line)
	}
}

func TestRecordPinEvent_NotConnected(t *testing.T) {
	c, w := newTestClient()
	c.connected = false

	c.RecordPinEvent("board-1", pin.Command{Name: "GPIO_34", Value: "LOW"})

	if len(w.points) != 0 {
		t.Errorf("points = %d, want none while disconnected", len(w.points))
	}
}

func TestClose(t *testing.T) {
	c, w := newTestClient()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if w.flushes != 1 {
		t.Errorf("flushes = %d, want pending points flushed once", w.flushes)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if w.flushes != 1 {
		t.Errorf("flushes = %d after Close, want no more", w.flushes)
	}

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestHandleWriteErrors(t *testing.T) {
	c, _ := newTestClient()

	got := make(chan error, 1)
	c.SetOnError(func(err error) { got <- err })

	errs := make(chan error, 1)
	errs <- errors.New("bucket not found")
	close(errs)
	c.handleWriteErrors(errs)

	select {
	case err := <-got:
		if !errors.Is(err, ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
	default:
		t.Fatal("error callback not invoked")
	}
}
