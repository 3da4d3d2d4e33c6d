package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// Publish sends payload to topic at the configured QoS, not retained.
//
// Pin events are fire-and-forget for the caller: a failure is returned so it
// can be logged, but nothing is queued for later delivery.
//
// Returns:
//   - error: ErrInvalidTopic, ErrNotConnected or a wrapped ErrPublishFailed
func (c *Client) Publish(topic string, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if c.isClosed() {
		return ErrClosed
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.session.Publish(topic, byte(c.cfg.QoS), false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// publishStatus writes the retained board status. Callers hold connectMu,
// so it goes straight to the session rather than through Publish.
func (c *Client) publishStatus(status, reason string) {
	payload := statusPayload(c.topic, c.cfg.Broker.ClientID, status, reason)
	token := c.session.Publish(Topics{}.BoardStatus(c.topic), byte(c.cfg.QoS), true, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.logWarn("board status publish timed out", "status", status)
		return
	}
	if err := token.Error(); err != nil {
		c.logWarn("board status publish failed", "status", status, "error", err)
	}
}
