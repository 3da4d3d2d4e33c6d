package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gpio-companion/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout bounds a single CONNECT/CONNACK exchange.
	defaultConnectTimeout = 10 * time.Second

	// defaultSubscribeTimeout bounds the SUBACK wait.
	defaultSubscribeTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 30 * time.Second

	// minRetryDelay stops a zero initial delay from turning the retry loop
	// into a busy loop.
	minRetryDelay = 50 * time.Millisecond

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions creates paho options for the board session.
//
// Paho's own reconnect is switched off: the Client runs a single retry loop
// so that connect and re-subscribe always happen together.
func buildClientOptions(cfg config.MQTTConfig, token string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s", scheme, cfg.BrokerAddress()))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(cfg.Broker.CleanSession)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetOrderMatters(true)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	opts.SetWill(Topics{}.BoardStatus(token), string(statusPayload(token, cfg.Broker.ClientID, "offline", "unexpected_disconnect")), 1, true)

	return opts
}

// boardStatus is the retained payload on the board status topic.
type boardStatus struct {
	Status    string `json:"status"`
	Board     string `json:"board"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// statusPayload renders a board status message.
func statusPayload(token, clientID, status, reason string) []byte {
	data, _ := json.Marshal(boardStatus{ //nolint:errcheck // plain strings always marshal
		Status:    status,
		Board:     token,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return data
}
