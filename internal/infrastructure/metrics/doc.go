// Package metrics exposes companion activity to Prometheus.
//
// A Bridge counts inbound messages, drops by reason, pin commands, published
// events and broker reconnects, and tracks the current connection state as a
// gauge. The same listener answers /health. Collectors live on a private
// registry so several instances can coexist in tests.
//
// Usage:
//
//	m := metrics.New("")
//	mqttClient.SetOnStateChange(m.ObserveState)
//	go m.Serve(ctx, cfg.Metrics, healthCheck)
package metrics
