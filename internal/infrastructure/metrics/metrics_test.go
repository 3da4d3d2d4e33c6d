package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nerrad567/gpio-companion/internal/infrastructure/mqtt"
)

func TestBridge_Counters(t *testing.T) {
	m := New("")

	m.MessageReceived()
	m.MessageReceived()
	m.MessageDropped("decode")
	m.MessageDropped("foreign_topic")
	m.MessageDropped("decode")
	m.CommandHandled("REGISTER", nil)
	m.CommandHandled("EVENT", errors.New("pin not registered"))
	m.EventPublished(nil)

	if got := testutil.ToFloat64(m.MessagesReceived); got != 2 {
		t.Errorf("messages received = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.MessagesDropped.WithLabelValues("decode")); got != 2 {
		t.Errorf("decode drops = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.MessagesDropped.WithLabelValues("foreign_topic")); got != 1 {
		t.Errorf("foreign_topic drops = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CommandsHandled.WithLabelValues("EVENT", "error")); got != 1 {
		t.Errorf("failed EVENT commands = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CommandsHandled.WithLabelValues("REGISTER", "ok")); got != 1 {
		t.Errorf("REGISTER commands = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EventsPublished.WithLabelValues("ok")); got != 1 {
		t.Errorf("events published = %v, want 1", got)
	}
}

func TestBridge_ObserveState(t *testing.T) {
	m := New("")

	m.ObserveState(mqtt.StateDisconnected, mqtt.StateConnecting)
	m.ObserveState(mqtt.StateConnecting, mqtt.StateConnected)
	if got := testutil.ToFloat64(m.ConnectionState); got != float64(mqtt.StateConnected) {
		t.Errorf("connection state = %v, want %v", got, float64(mqtt.StateConnected))
	}

	m.ObserveState(mqtt.StateConnected, mqtt.StateReconnecting)
	m.ObserveState(mqtt.StateReconnecting, mqtt.StateConnected)
	m.ObserveState(mqtt.StateConnected, mqtt.StateReconnecting)

	if got := testutil.ToFloat64(m.Reconnects); got != 2 {
		t.Errorf("reconnects = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ConnectionState); got != float64(mqtt.StateReconnecting) {
		t.Errorf("connection state = %v, want reconnecting", got)
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New("test")
	b := New("test")

	a.MessageReceived()

	if got := testutil.ToFloat64(b.MessagesReceived); got != 0 {
		t.Errorf("second instance counted %v messages, want 0", got)
	}
}

func TestHandler(t *testing.T) {
	m := New("")
	m.MessageDropped("stopped")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`companion_messages_dropped_total{reason="stopped"} 1`,
		"companion_mqtt_connection_state 0",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestRouter_Health(t *testing.T) {
	m := New("")

	tests := []struct {
		name   string
		health HealthFunc
		want   int
		body   string
	}{
		{name: "no check", health: nil, want: http.StatusOK, body: `"ok"`},
		{name: "healthy", health: func(context.Context) error { return nil }, want: http.StatusOK, body: `"ok"`},
		{
			name:   "broker down",
			health: func(context.Context) error { return errors.New("mqtt: not connected") },
			want:   http.StatusServiceUnavailable,
			body:   "mqtt: not connected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			m.Router("", tt.health).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestRouter_CustomPath(t *testing.T) {
	m := New("")
	router := m.Router("/custom", nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/custom", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /custom status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics status = %d, want 404", rec.Code)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	m := New("")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.serve(ctx, ln, m.Router("", nil))
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	if err != nil {
		cancel()
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "companion_messages_received_total") {
		t.Errorf("response missing messages_received_total")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve() did not return after cancel")
	}
}
