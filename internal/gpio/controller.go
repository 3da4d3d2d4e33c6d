package gpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gpio-companion/internal/pin"
)

// defaultWatchTimeout bounds each edge wait so watchers notice CloseAll.
const defaultWatchTimeout = 500 * time.Millisecond

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// EdgeHandler receives the EVENT command produced when a watched input changes.
type EdgeHandler func(cmd pin.Command)

// Options configures a Controller.
type Options struct {
	// EdgeWatch starts a watcher for every input pin.
	EdgeWatch bool

	// WatchTimeout bounds each edge wait. Zero means 500ms.
	WatchTimeout time.Duration
}

// Controller owns every pin opened on behalf of remote clients.
//
// Thread Safety:
//   - The registry is guarded by an RWMutex; each pin has its own mutex so
//     edge watchers and command handling never touch a line concurrently.
type Controller struct {
	driver Driver
	opts   Options

	pins map[string]*pinEntry
	mu   sync.RWMutex

	onEdge   EdgeHandler
	onEdgeMu sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// pinEntry is one registered pin.
type pinEntry struct {
	mu        sync.Mutex
	name      string
	line      Pin
	direction pin.Direction
	level     bool

	stop chan struct{}
	done chan struct{}
}

// NewController returns a Controller with an empty registry.
func NewController(driver Driver, opts Options) *Controller {
	if opts.WatchTimeout <= 0 {
		opts.WatchTimeout = defaultWatchTimeout
	}
	return &Controller{
		driver: driver,
		opts:   opts,
		pins:   make(map[string]*pinEntry),
	}
}

// SetEdgeHandler sets the receiver of input change events.
func (c *Controller) SetEdgeHandler(fn EdgeHandler) {
	c.onEdgeMu.Lock()
	c.onEdge = fn
	c.onEdgeMu.Unlock()
}

// RegisterPin opens cmd.Name in cmd.Direction.
//
// Registering a pin again with the same direction is a no-op. Registering it
// with the other direction reconfigures the open line. An OUT registration
// whose value parses as a level starts at that level, otherwise LOW.
//
// Returns:
//   - error: ErrInvalidDirection, ErrPinNotFound, or a driver failure
func (c *Controller) RegisterPin(cmd pin.Command) error {
	if cmd.Direction != pin.DirectionIn && cmd.Direction != pin.DirectionOut {
		return fmt.Errorf("%w: %q for %s", ErrInvalidDirection, cmd.Direction, cmd.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.pins[cmd.Name]
	if exists && entry.direction == cmd.Direction {
		c.logDebug("pin already registered", "pin", cmd.Name, "direction", cmd.Direction)
		return nil
	}

	if exists {
		c.stopWatcher(entry)
	} else {
		line, err := c.driver.Open(cmd.Name)
		if err != nil {
			return err
		}
		entry = &pinEntry{name: cmd.Name, line: line}
	}

	entry.mu.Lock()
	err := c.configure(entry, cmd)
	entry.mu.Unlock()
	if err != nil {
		if !exists {
			entry.line.Halt() //nolint:errcheck // already failing
		}
		return err
	}

	c.pins[cmd.Name] = entry
	if entry.direction == pin.DirectionIn && c.opts.EdgeWatch {
		c.startWatcher(entry)
	}

	c.logInfo("pin registered",
		"pin", cmd.Name,
		"line", entry.line.Name(),
		"direction", cmd.Direction,
	)
	return nil
}

// configure applies cmd's direction to entry. Callers hold entry.mu.
func (c *Controller) configure(entry *pinEntry, cmd pin.Command) error {
	switch cmd.Direction {
	case pin.DirectionOut:
		high := false
		if cmd.Value != "" {
			if v, err := pin.ParseLevel(cmd.Value); err == nil {
				high = v
			}
		}
		if err := entry.line.ConfigureOutput(high); err != nil {
			return err
		}
		entry.level = high

	case pin.DirectionIn:
		if err := entry.line.ConfigureInput(c.opts.EdgeWatch); err != nil {
			return err
		}
		level, err := entry.line.Read()
		if err != nil {
			return fmt.Errorf("reading %s: %w", cmd.Name, err)
		}
		entry.level = level
	}

	entry.direction = cmd.Direction
	return nil
}

// HandleEvent applies an EVENT command to a registered pin.
//
// An OUT event writes the level in cmd.Value and produces no reply. An IN
// event reads the pin and returns an EVENT command carrying the level, for
// the caller to publish. An empty direction means "the registered one".
//
// Returns:
//   - *pin.Command: Reply to publish, or nil
//   - error: ErrPinNotRegistered, ErrUnsupportedProperty, ErrInvalidDirection,
//     ErrInvalidLevel, or a driver failure
func (c *Controller) HandleEvent(cmd pin.Command) (*pin.Command, error) {
	if cmd.Property != pin.PropertyPinState {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProperty, cmd.Property)
	}

	c.mu.RLock()
	entry, ok := c.pins[cmd.Name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPinNotRegistered, cmd.Name)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	direction := cmd.Direction
	if direction == "" {
		direction = entry.direction
	}

	switch direction {
	case pin.DirectionOut:
		if entry.direction != pin.DirectionOut {
			return nil, fmt.Errorf("%w: %s is registered as %s", ErrInvalidDirection, cmd.Name, entry.direction)
		}
		high, err := pin.ParseLevel(cmd.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q for %s", ErrInvalidLevel, cmd.Value, cmd.Name)
		}
		if err := entry.line.Write(high); err != nil {
			return nil, err
		}
		entry.level = high
		c.logDebug("pin written", "pin", cmd.Name, "level", pin.LevelString(high))
		return nil, nil

	case pin.DirectionIn:
		high, err := entry.line.Read()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", cmd.Name, err)
		}
		entry.level = high
		reply := stateEvent(cmd.Name, entry.direction, high)
		return &reply, nil

	default:
		return nil, fmt.Errorf("%w: %q for %s", ErrInvalidDirection, direction, cmd.Name)
	}
}

// CloseAll stops every watcher and halts every registered pin. The registry
// is empty afterwards; all pins are attempted even if some fail.
func (c *Controller) CloseAll() error {
	c.mu.Lock()
	entries := c.pins
	c.pins = make(map[string]*pinEntry)
	c.mu.Unlock()

	var errs []error
	for name, entry := range entries {
		c.stopWatcher(entry)

		entry.mu.Lock()
		err := entry.line.Halt()
		entry.mu.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
			continue
		}
		c.logDebug("pin closed", "pin", name)
	}

	if len(entries) > 0 {
		c.logInfo("all pins closed", "count", len(entries), "failed", len(errs))
	}
	return errors.Join(errs...)
}

// Registered reports the names of all registered pins.
func (c *Controller) Registered() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.pins))
	for name := range c.pins {
		names = append(names, name)
	}
	return names
}

// stateEvent builds the EVENT command reporting a pin level.
func stateEvent(name string, direction pin.Direction, high bool) pin.Command {
	return pin.Command{
		Name:      name,
		Direction: direction,
		Property:  pin.PropertyPinState,
		Value:     pin.LevelString(high),
		Action:    pin.ActionEvent,
	}
}

// SetLogger sets a logger for pin lifecycle logging.
func (c *Controller) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Controller) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Controller) logInfo(msg string, args ...any) {
	if l := c.getLogger(); l != nil {
		l.Info(msg, args...)
	}
}

func (c *Controller) logWarn(msg string, args ...any) {
	if l := c.getLogger(); l != nil {
		l.Warn(msg, args...)
	}
}

func (c *Controller) logDebug(msg string, args ...any) {
	if l := c.getLogger(); l != nil {
		l.Debug(msg, args...)
	}
}
