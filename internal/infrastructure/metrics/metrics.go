package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nerrad567/gpio-companion/internal/infrastructure/mqtt"
)

const defaultNamespace = "companion"

// Bridge holds the Prometheus collectors for one companion process.
// It satisfies appinventor.Metrics and observes mqtt connection state.
type Bridge struct {
	registry *prometheus.Registry

	MessagesReceived prometheus.Counter
	MessagesDropped  *prometheus.CounterVec
	CommandsHandled  *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
	Reconnects       prometheus.Counter
	ConnectionState  prometheus.Gauge
}

// New creates the collectors on a fresh registry.
// An empty namespace uses "companion".
func New(namespace string) *Bridge {
	if namespace == "" {
		namespace = defaultNamespace
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Bridge{
		registry: reg,
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of MQTT messages handed to the dispatcher",
		}),
		MessagesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Total number of messages dropped without reaching the pin controller",
		}, []string{"reason"}),
		CommandsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pin_commands_total",
			Help:      "Total number of pin commands passed to the controller",
		}, []string{"action", "status"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of pin events published to the broker",
		}, []string{"status"}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_reconnects_total",
			Help:      "Total number of times the broker connection entered reconnecting",
		}),
		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connection_state",
			Help:      "Broker connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (b *Bridge) Registry() *prometheus.Registry {
	return b.registry
}

// MessageReceived counts an inbound message.
func (b *Bridge) MessageReceived() {
	b.MessagesReceived.Inc()
}

// MessageDropped counts a message discarded for reason.
func (b *Bridge) MessageDropped(reason string) {
	b.MessagesDropped.WithLabelValues(reason).Inc()
}

// CommandHandled counts a controller call for action.
func (b *Bridge) CommandHandled(action string, err error) {
	b.CommandsHandled.WithLabelValues(action, status(err)).Inc()
}

// EventPublished counts an outbound event.
func (b *Bridge) EventPublished(err error) {
	b.EventsPublished.WithLabelValues(status(err)).Inc()
}

// ObserveState tracks a connection state transition.
// Pass it to mqtt.Client.SetOnStateChange.
func (b *Bridge) ObserveState(from, to mqtt.ConnectionState) {
	b.ConnectionState.Set(float64(to))
	if to == mqtt.StateReconnecting && from != mqtt.StateReconnecting {
		b.Reconnects.Inc()
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
