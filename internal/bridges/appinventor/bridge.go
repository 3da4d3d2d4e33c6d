package appinventor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gpio-companion/internal/infrastructure/mqtt"
	"github.com/nerrad567/gpio-companion/internal/pin"
)

// Drop reasons reported to Metrics.
const (
	DropForeignTopic      = "foreign_topic"
	DropDecode            = "decode"
	DropUnsupportedAction = "unsupported_action"
	DropStopped           = "stopped"
	DropNoIdentity        = "no_identity"
)

// Identity resolves the board identifier.
// Satisfied by *identity.Identity.
type Identity interface {
	GetOrCreate(ctx context.Context) (string, error)
}

// PinController performs pin operations.
// Satisfied by *gpio.Controller.
type PinController interface {
	RegisterPin(cmd pin.Command) error
	HandleEvent(cmd pin.Command) (*pin.Command, error)
	CloseAll() error
}

// Publisher sends outbound messages.
// Satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Recorder stores pin events for later analysis. Optional.
// Satisfied by *influxdb.Client.
type Recorder interface {
	RecordPinEvent(board string, cmd pin.Command)
}

// Metrics counts dispatcher activity. Optional.
// Satisfied by *metrics.Bridge.
type Metrics interface {
	MessageReceived()
	MessageDropped(reason string)
	CommandHandled(action string, err error)
	EventPublished(err error)
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// BridgeOptions holds the collaborators of a Bridge.
type BridgeOptions struct {
	Identity   Identity
	Controller PinController
	Publisher  Publisher

	// Optional.
	Recorder Recorder
	Metrics  Metrics
	Logger   Logger
}

// Bridge routes App Inventor commands to the pin controller.
// It holds no pin state of its own.
//
// Thread Safety: All methods are safe for concurrent use. Messages are
// handled one at a time.
type Bridge struct {
	identity   Identity
	controller PinController
	publisher  Publisher
	recorder   Recorder
	metrics    Metrics

	// handleMu serialises HandleMessage and Stop. HandleEdge runs on
	// watcher goroutines and must not take it: RegisterPin waits for a
	// watcher to exit while HandleMessage holds handleMu.
	handleMu sync.Mutex
	stopped  atomic.Bool
	stopOnce sync.Once
	stopErr  error

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge. Identity, Controller and Publisher are required.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Identity == nil {
		return nil, fmt.Errorf("%w: identity", ErrMissingDependency)
	}
	if opts.Controller == nil {
		return nil, fmt.Errorf("%w: pin controller", ErrMissingDependency)
	}
	if opts.Publisher == nil {
		return nil, fmt.Errorf("%w: publisher", ErrMissingDependency)
	}

	return &Bridge{
		identity:   opts.Identity,
		controller: opts.Controller,
		publisher:  opts.Publisher,
		recorder:   opts.Recorder,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}, nil
}

// Run dispatches messages until ctx is cancelled or messages is closed.
//
// Returns:
//   - error: ctx.Err() on cancellation, nil when the channel closes
func (b *Bridge) Run(ctx context.Context, messages <-chan mqtt.Message) error {
	b.logInfo("dispatcher started")
	defer b.logInfo("dispatcher stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if msg.Duplicate {
				b.logDebug("redelivered message", "topic", msg.Topic)
			}
			b.HandleMessage(ctx, msg.Topic, msg.Payload)
		}
	}
}

// HandleMessage processes one inbound message.
//
// Messages on any topic other than the board identifier are discarded.
// Undecodable payloads and unsupported actions are logged and dropped;
// controller failures are logged. Nothing is ever sent back to the sender
// as an error.
func (b *Bridge) HandleMessage(ctx context.Context, topic string, payload []byte) {
	b.handleMu.Lock()
	defer b.handleMu.Unlock()

	b.count(func(m Metrics) { m.MessageReceived() })

	if b.stopped.Load() {
		b.drop(DropStopped)
		return
	}

	token, err := b.identity.GetOrCreate(ctx)
	if err != nil {
		b.logError("board identifier unavailable, dropping message", err)
		b.drop(DropNoIdentity)
		return
	}

	if topic != (mqtt.Topics{}).BoardCommands(token) {
		b.logDebug("ignoring message for another board", "topic", topic)
		b.drop(DropForeignTopic)
		return
	}

	cmd, err := pin.Decode(payload)
	if err != nil {
		b.logWarn("dropping undecodable message", "error", err, "payload_size", len(payload))
		b.drop(DropDecode)
		return
	}

	b.logDebug("command received", "command", cmd.String())

	switch cmd.Action {
	case pin.ActionRegister:
		err := b.controller.RegisterPin(cmd)
		b.count(func(m Metrics) { m.CommandHandled(string(pin.ActionRegister), err) })
		if err != nil {
			b.logError("pin registration failed", err, "pin", cmd.Name, "direction", cmd.Direction)
		}

	case pin.ActionEvent:
		reply, err := b.controller.HandleEvent(cmd)
		b.count(func(m Metrics) { m.CommandHandled(string(pin.ActionEvent), err) })
		if err != nil {
			b.logError("pin event failed", err, "pin", cmd.Name, "value", cmd.Value)
			return
		}
		if reply == nil {
			b.record(token, cmd)
			return
		}
		// An input read records the level that was read, not the request.
		b.record(token, *reply)
		b.publishEvent(token, *reply)

	default:
		b.logInfo(ErrUnsupportedAction.Error(), "action", cmd.RawAction, "pin", cmd.Name)
		b.drop(DropUnsupportedAction)
	}
}

// HandleEdge publishes an input change reported by the pin controller's
// edge watcher. Wire it with gpio.Controller.SetEdgeHandler.
func (b *Bridge) HandleEdge(cmd pin.Command) {
	if b.stopped.Load() {
		return
	}

	token, err := b.identity.GetOrCreate(context.Background())
	if err != nil {
		b.logError("board identifier unavailable, dropping edge event", err)
		return
	}
	b.record(token, cmd)
	b.publishEvent(token, cmd)
}

// publishEvent encodes cmd and publishes it on the board's events topic.
// Failures are logged; events are not queued for redelivery.
func (b *Bridge) publishEvent(token string, cmd pin.Command) {
	payload, err := pin.Encode(cmd)
	if err == nil {
		err = b.publisher.Publish(mqtt.Topics{}.BoardEvents(token), payload)
	}
	b.count(func(m Metrics) { m.EventPublished(err) })
	if errors.Is(err, mqtt.ErrNotConnected) {
		b.logWarn("pin event not published, broker unavailable", "pin", cmd.Name)
		return
	}
	if err != nil {
		b.logError("pin event publish failed", err, "pin", cmd.Name)
		return
	}
	b.logDebug("pin event published", "pin", cmd.Name, "value", cmd.Value)
}

// Stop makes the bridge inert and closes every open pin. Messages arriving
// afterwards are dropped. Safe to call more than once.
//
// Returns:
//   - error: The pin controller's CloseAll result from the first call
func (b *Bridge) Stop() error {
	b.stopOnce.Do(func() {
		b.handleMu.Lock()
		b.stopped.Store(true)
		b.handleMu.Unlock()

		b.stopErr = b.controller.CloseAll()
		if b.stopErr != nil {
			b.logError("closing pins", b.stopErr)
		}
		b.logInfo("bridge stopped")
	})
	return b.stopErr
}

func (b *Bridge) record(token string, cmd pin.Command) {
	if b.recorder != nil {
		b.recorder.RecordPinEvent(token, cmd)
	}
}

func (b *Bridge) drop(reason string) {
	b.count(func(m Metrics) { m.MessageDropped(reason) })
}

func (b *Bridge) count(fn func(Metrics)) {
	if b.metrics != nil {
		fn(b.metrics)
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if l := b.getLogger(); l != nil {
		l.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if l := b.getLogger(); l != nil {
		l.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error, keysAndValues ...any) {
	if l := b.getLogger(); l != nil {
		l.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if l := b.getLogger(); l != nil {
		l.Debug(msg, keysAndValues...)
	}
}
