// Package mqtt manages the companion's single broker session.
//
// This package manages:
//   - The connection state machine (DISCONNECTED, CONNECTING, CONNECTED, RECONNECTING)
//   - Re-subscribing the board topic after every reconnect
//   - Exponential backoff with jitter between reconnect attempts
//   - A retained online/offline status with Last Will and Testament
//
// # Architecture
//
// The board subscribes to one topic: its own identifier. App Inventor
// clients publish pin commands to that topic and read pin events from the
// identifier's /events subtopic.
//
//	App Inventor app ↔ public broker ↔ companion ↔ GPIO pins
//
// Inbound messages are not handed to callbacks. They are queued on the
// channel returned by Messages() and consumed by one goroutine, so pin
// operations never run concurrently with each other.
//
// # Usage
//
//	client, err := mqtt.New(cfg.MQTT, token)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	for msg := range client.Messages() {
//	    // decode and dispatch msg.Payload
//	}
package mqtt
