package mqtt

// ConnectionState is the lifecycle state of the broker session.
//
//	DISCONNECTED -> CONNECTING -> CONNECTED
//	CONNECTED -> RECONNECTING (connection lost) -> CONNECTED
//	any -> DISCONNECTED (Close, or a failed connect with reconnect disabled)
type ConnectionState int

// Connection states.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String returns the state name used in logs and metrics labels.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	default:
		return "UNKNOWN"
	}
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// SetOnStateChange registers a callback invoked after every state transition.
// It runs on the goroutine that caused the transition and must not block.
func (c *Client) SetOnStateChange(fn func(from, to ConnectionState)) {
	c.stateMu.Lock()
	c.onStateChange = fn
	c.stateMu.Unlock()
}

// setState moves to next and notifies the callback if the state changed.
func (c *Client) setState(next ConnectionState) {
	c.stateMu.Lock()
	prev := c.state
	c.state = next
	fn := c.onStateChange
	c.stateMu.Unlock()

	if prev == next {
		return
	}
	c.logDebug("mqtt state change", "from", prev.String(), "to", next.String())
	if fn != nil {
		fn(prev, next)
	}
}

// swapState moves from the expected state to next and reports whether it did.
func (c *Client) swapState(expected, next ConnectionState) bool {
	c.stateMu.Lock()
	if c.state != expected {
		c.stateMu.Unlock()
		return false
	}
	c.state = next
	fn := c.onStateChange
	c.stateMu.Unlock()

	c.logDebug("mqtt state change", "from", expected.String(), "to", next.String())
	if fn != nil {
		fn(expected, next)
	}
	return true
}
