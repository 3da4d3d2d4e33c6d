package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gpio-companion/internal/infrastructure/config"
)

// Client owns the board's broker session.
//
// It subscribes to exactly one topic, fixed at construction, and keeps that
// subscription alive across connection loss. Received messages are queued on
// Messages() in delivery order.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - At most one connect+subscribe sequence runs at any time.
type Client struct {
	cfg     config.MQTTConfig
	topic   string
	session session

	state         ConnectionState
	onStateChange func(from, to ConnectionState)
	stateMu       sync.RWMutex

	// connectMu serialises every connect+subscribe sequence.
	connectMu sync.Mutex

	// retrying is true while the retry goroutine is alive. Guarded by stateMu.
	retrying bool
	lifetime context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup

	messages  chan Message
	done      chan struct{}
	msgMu     sync.RWMutex
	msgClosed bool
	closeOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Message is one inbound delivery on the board topic.
type Message struct {
	Topic     string
	Payload   []byte
	Duplicate bool
}

// session is the subset of pahomqtt.Client the Client drives.
type session interface {
	Connect() pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

// New builds a disconnected client for the board whose commands arrive on
// topic. No network traffic happens until Connect.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//   - topic: The board identifier; also the only subscribed topic
//
// Returns:
//   - *Client: Client in StateDisconnected
//   - error: ErrInvalidTopic or ErrInvalidQoS
func New(cfg config.MQTTConfig, topic string) (*Client, error) {
	c, err := newClient(cfg, topic)
	if err != nil {
		return nil, err
	}

	opts := buildClientOptions(cfg, topic)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})
	c.session = pahomqtt.NewClient(opts)
	return c, nil
}

// newClient validates inputs and sets up everything except the session.
func newClient(cfg config.MQTTConfig, topic string) (*Client, error) {
	if err := validateBoardTopic(topic); err != nil {
		return nil, fmt.Errorf("%w: %q", err, topic)
	}
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}

	buffer := cfg.InboundBuffer
	if buffer < 0 {
		buffer = 0
	}

	lifetime, stop := context.WithCancel(context.Background())
	return &Client{
		cfg:      cfg,
		topic:    topic,
		state:    StateDisconnected,
		lifetime: lifetime,
		stop:     stop,
		messages: make(chan Message, buffer),
		done:     make(chan struct{}),
	}, nil
}

// Topic returns the subscribed board topic.
func (c *Client) Topic() string {
	return c.topic
}

// Messages returns the inbound message channel. It is closed by Close.
func (c *Client) Messages() <-chan Message {
	return c.messages
}

// Connect opens the session and subscribes to the board topic.
//
// A successful CONNACK moves the client to StateConnected and issues exactly
// one subscription. If the first attempt fails and reconnect is enabled the
// client moves to StateReconnecting, keeps retrying in the background and
// Connect returns nil. With reconnect disabled the failure is returned and the
// client goes back to StateDisconnected.
//
// Calling Connect on a client that is already connected or reconnecting is
// a no-op.
func (c *Client) Connect(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	if !c.swapState(StateDisconnected, StateConnecting) {
		return nil
	}

	err := c.connectAndSubscribe(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrClosed) {
		return err
	}

	if c.cfg.Reconnect.Enabled && ctx.Err() == nil {
		c.logWarn("initial MQTT connection failed, retrying in background",
			"broker", c.cfg.BrokerAddress(),
			"error", err,
		)
		c.setState(StateReconnecting)
		c.startRetry()
		return nil
	}

	c.setState(StateDisconnected)
	return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
}

// connectAndSubscribe performs one full connect+subscribe sequence.
// On success the client is in StateConnected; on failure the state is left
// for the caller to decide.
func (c *Client) connectAndSubscribe(ctx context.Context) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}

	if err := waitToken(ctx, c.session.Connect(), defaultConnectTimeout); err != nil {
		return fmt.Errorf("connecting to %s: %w", c.cfg.BrokerAddress(), err)
	}

	token := c.session.Subscribe(Topics{}.BoardCommands(c.topic), byte(c.cfg.QoS), c.deliver)
	if err := waitToken(ctx, token, defaultSubscribeTimeout); err != nil {
		c.session.Disconnect(0)
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, c.topic, err)
	}

	c.setState(StateConnected)
	c.logInfo("MQTT connected",
		"broker", c.cfg.BrokerAddress(),
		"topic", c.topic,
	)

	c.publishStatus("online", "")
	return nil
}

// handleConnectionLost is invoked by paho when an established session drops.
func (c *Client) handleConnectionLost(err error) {
	if c.isClosed() {
		return
	}

	if !c.cfg.Reconnect.Enabled {
		if c.swapState(StateConnected, StateDisconnected) {
			c.logError("MQTT connection lost, reconnect disabled", "error", err)
		}
		return
	}

	if !c.swapState(StateConnected, StateReconnecting) {
		return
	}
	c.logWarn("MQTT connection lost, reconnecting", "error", err)
	c.startRetry()
}

// startRetry launches the retry goroutine unless one is already running.
// The wg.Add happens under stateMu, and Close cancels the lifetime under
// stateMu, so no loop is added once Close has started waiting.
func (c *Client) startRetry() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.retrying || c.lifetime.Err() != nil {
		return
	}
	c.retrying = true
	c.wg.Add(1)
	go c.retryLoop()
}

// retryLoop re-runs connect+subscribe with exponential backoff and jitter
// until it succeeds or the client is closed. It never gives up on its own.
func (c *Client) retryLoop() {
	defer c.wg.Done()
	defer func() {
		c.stateMu.Lock()
		c.retrying = false
		// A loss reported while this loop was finishing found retrying set
		// and did not start a new loop.
		again := c.state == StateReconnecting && c.lifetime.Err() == nil
		c.stateMu.Unlock()
		if again {
			c.startRetry()
		}
	}()

	attempt := 0
	operation := func() error {
		attempt++
		if c.isClosed() {
			return backoff.Permanent(ErrClosed)
		}
		return c.connectAndSubscribe(c.lifetime)
	}
	notify := func(err error, next time.Duration) {
		c.logWarn("MQTT reconnect attempt failed",
			"attempt", attempt,
			"next_retry", next.String(),
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(c.newBackOff(), c.lifetime), notify); err != nil {
		c.logDebug("MQTT retry loop stopped", "error", err)
		return
	}
	c.logInfo("MQTT reconnected", "attempts", attempt)
}

// newBackOff returns the retry schedule from the reconnect config.
func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = max(c.cfg.GetInitialReconnectDelay(), minRetryDelay)
	b.MaxInterval = max(c.cfg.GetMaxReconnectDelay(), b.InitialInterval)
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Close stops any retry loop, announces a graceful offline status, releases
// the session and closes the Messages channel. Safe to call more than once.
//
// Returns:
//   - error: Always nil; kept for io.Closer compatibility
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.stateMu.Lock()
		c.stop()
		c.stateMu.Unlock()
		close(c.done)
		c.wg.Wait()

		c.connectMu.Lock()
		if c.session != nil {
			if c.State() == StateConnected && c.session.IsConnected() {
				c.publishStatus("offline", "graceful_shutdown")
			}
			c.session.Disconnect(defaultDisconnectQuiesce)
		}
		c.setState(StateDisconnected)
		c.connectMu.Unlock()

		c.msgMu.Lock()
		c.msgClosed = true
		close(c.messages)
		c.msgMu.Unlock()
	})
	return nil
}

// isClosed reports whether Close has started.
func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// HealthCheck verifies the MQTT connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return fmt.Errorf("%w: state %s", ErrNotConnected, c.State())
	}
	return nil
}

// IsConnected reports whether the client is in StateConnected and the
// underlying session agrees.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected && c.session != nil && c.session.IsConnected()
}

// deliver is the paho subscription callback. It only enqueues; paho calls
// it from one router goroutine so order is preserved.
func (c *Client) deliver(_ pahomqtt.Client, msg pahomqtt.Message) {
	c.msgMu.RLock()
	defer c.msgMu.RUnlock()

	if c.msgClosed {
		return
	}

	m := Message{
		Topic:     msg.Topic(),
		Payload:   msg.Payload(),
		Duplicate: msg.Duplicate(),
	}
	select {
	case c.messages <- m:
	case <-c.done:
	}
}

// waitToken waits for a paho token, the context, or the timeout.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	}
}

// SetLogger sets a logger for connection lifecycle logging.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Client) logError(msg string, args ...any) {
	if l := c.getLogger(); l != nil {
		l.Error(msg, args...)
	}
}

func (c *Client) logWarn(msg string, args ...any) {
	if l := c.getLogger(); l != nil {
		l.Warn(msg, args...)
	}
}

func (c *Client) logInfo(msg string, args ...any) {
	if l := c.getLogger(); l != nil {
		l.Info(msg, args...)
	}
}

func (c *Client) logDebug(msg string, args ...any) {
	if l := c.getLogger(); l != nil {
		l.Debug(msg, args...)
	}
}
