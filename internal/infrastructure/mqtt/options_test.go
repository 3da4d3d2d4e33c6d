package mqtt

import (
	"encoding/json"
	"testing"
)

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig(true)
	cfg.Auth.Username = "board"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg, testToken)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "companion-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "board" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
	if opts.AutoReconnect || opts.ConnectRetry {
		t.Error("paho reconnect must be disabled")
	}

	if !opts.WillEnabled || opts.WillTopic != testToken+"/status" || !opts.WillRetained {
		t.Errorf("will = %v %q retained=%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	var will boardStatus
	if err := json.Unmarshal(opts.WillPayload, &will); err != nil {
		t.Fatalf("will payload: %v", err)
	}
	if will.Status != "offline" || will.Reason != "unexpected_disconnect" {
		t.Errorf("will = %+v", will)
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig(true)
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg, testToken)

	if opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
		t.Errorf("Servers[0] = %v, want ssl scheme", opts.Servers[0])
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config not applied")
	}
}
