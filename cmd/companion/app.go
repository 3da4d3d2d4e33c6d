package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gpio-companion/internal/bridges/appinventor"
	"github.com/nerrad567/gpio-companion/internal/gpio"
	"github.com/nerrad567/gpio-companion/internal/identity"
	"github.com/nerrad567/gpio-companion/internal/infrastructure/config"
	"github.com/nerrad567/gpio-companion/internal/infrastructure/database"
	"github.com/nerrad567/gpio-companion/internal/infrastructure/influxdb"
	"github.com/nerrad567/gpio-companion/internal/infrastructure/logging"
	"github.com/nerrad567/gpio-companion/internal/infrastructure/metrics"
	"github.com/nerrad567/gpio-companion/internal/infrastructure/mqtt"
)

// deviceTreeModel names the board on Raspberry Pi and similar SBCs.
const deviceTreeModel = "/proc/device-tree/model"

// brokerSession is the part of *mqtt.Client the app drives.
type brokerSession interface {
	Connect(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Messages() <-chan mqtt.Message
	Close() error
}

// backend is a checked, closable dependency: the database or InfluxDB.
type backend interface {
	HealthCheck(ctx context.Context) error
	Close() error
}

// pinRegistry is the part of *gpio.Controller the app reports on.
type pinRegistry interface {
	Registered() []string
}

// dispatcher is the part of *appinventor.Bridge the app drives.
type dispatcher interface {
	Run(ctx context.Context, messages <-chan mqtt.Message) error
	Stop() error
}

// app holds every long-lived component of a running companion.
// Fields left nil were never started and are skipped on shutdown.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	token    string
	platform string

	db      backend
	driver  io.Closer
	influx  backend
	pins    pinRegistry
	session brokerSession
	bridge  dispatcher
	metrics *metrics.Bridge

	shutdownOnce sync.Once
}

// newApp opens storage, resolves the board identity and builds the pin,
// broker and dispatch components. Nothing talks to the broker yet.
// On error every component already started is released.
func newApp(ctx context.Context, cfg *config.Config, log *logging.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		log:      log,
		platform: boardModel(cfg.Board.Model),
		metrics:  metrics.New(""),
	}

	if err := a.init(ctx); err != nil {
		a.shutdown()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	a.db = db
	log.Info("database connected", "path", db.Path())

	board := identity.New(identity.NewSQLiteStore(db))
	token, err := board.GetOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("resolving board identifier: %w", err)
	}
	a.token = token
	a.log = a.log.ForBoard(token)
	log = a.log

	driver, err := gpio.NewDriver(cfg.GPIO.Driver)
	if err != nil {
		return fmt.Errorf("initialising GPIO driver: %w", err)
	}
	a.driver = driver
	log.Info("GPIO driver ready", "driver", driver.Name())

	controller := gpio.NewController(driver, gpio.Options{
		EdgeWatch:    cfg.GPIO.EdgeWatch,
		WatchTimeout: cfg.GPIO.WatchTimeout,
	})
	controller.SetLogger(log.Component("gpio"))
	a.pins = controller

	client, err := mqtt.New(cfg.MQTT, token)
	if err != nil {
		return fmt.Errorf("creating MQTT client: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnStateChange(func(from, to mqtt.ConnectionState) {
		a.metrics.ObserveState(from, to)
		if to == mqtt.StateReconnecting {
			log.Warn("MQTT connection lost, reconnecting", "broker", cfg.MQTT.BrokerAddress())
		}
	})
	a.session = client

	opts := appinventor.BridgeOptions{
		Identity:   board,
		Controller: controller,
		Publisher:  client,
		Metrics:    a.metrics,
		Logger:     log.Component("bridge"),
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		a.influx = influxClient
		opts.Recorder = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	bridge, err := appinventor.NewBridge(opts)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	controller.SetEdgeHandler(bridge.HandleEdge)
	a.bridge = bridge

	return nil
}

// banner logs what a user needs to configure the App Inventor application.
func (a *app) banner() {
	topics := mqtt.Topics{}
	a.log.Info("board ready",
		"board_id", a.token,
		"platform", a.platform,
		"broker_host", a.cfg.MQTT.Broker.Host,
		"broker_port", a.cfg.MQTT.Broker.Port,
		"command_topic", topics.BoardCommands(a.token),
		"events_topic", topics.BoardEvents(a.token),
	)
}

// serve connects to the broker and dispatches commands until ctx is done.
func (a *app) serve(ctx context.Context) error {
	if err := a.session.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.bridge.Run(gctx, a.session.Messages())
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("dispatcher: %w", err)
		}
		return nil
	})

	if a.cfg.Metrics.Enabled {
		g.Go(func() error {
			a.log.Info("metrics server listening", "address", a.cfg.Metrics.Listen, "path", a.cfg.Metrics.Path)
			return a.metrics.Serve(gctx, a.cfg.Metrics, a.healthCheck)
		})
	}

	a.log.Info("initialisation complete, waiting for shutdown signal")
	err := g.Wait()
	a.log.Info("shutdown signal received, cleaning up")
	return err
}

// healthCheck reports whether storage, the broker session and, when
// enabled, InfluxDB are usable.
func (a *app) healthCheck(ctx context.Context) error {
	if err := a.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := a.session.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if a.influx != nil {
		if err := a.influx.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// shutdown releases components in dependency order: pins are closed
// before the broker session goes away, and storage is closed last.
func (a *app) shutdown() {
	a.shutdownOnce.Do(func() {
		if a.bridge != nil {
			var open []string
			if a.pins != nil {
				open = a.pins.Registered()
			}
			a.log.Info("closing pins", "count", len(open), "pins", open)
			if err := a.bridge.Stop(); err != nil {
				a.log.Error("error closing pins", "error", err)
			}
		}
		if a.session != nil {
			a.log.Info("disconnecting from MQTT")
			if err := a.session.Close(); err != nil {
				a.log.Error("error closing MQTT", "error", err)
			}
		}
		a.closeQuietly("InfluxDB", a.influx)
		a.closeQuietly("GPIO driver", a.driver)
		a.closeQuietly("database", a.db)
	})
}

func (a *app) closeQuietly(name string, c io.Closer) {
	if c == nil {
		return
	}
	a.log.Info("closing " + name)
	if err := c.Close(); err != nil {
		a.log.Error("error closing "+name, "error", err)
	}
}

// boardModel returns the configured model, the device tree model, or the
// Go platform, in that order.
func boardModel(configured string) string {
	if configured != "" {
		return configured
	}
	if data, err := os.ReadFile(deviceTreeModel); err == nil {
		if model := strings.TrimRight(strings.TrimSpace(string(data)), "\x00"); model != "" {
			return model
		}
	}
	return runtime.GOOS + "/" + runtime.GOARCH
}

// Compile-time checks that the concrete components fit the app's seams.
var (
	_ backend              = (*database.DB)(nil)
	_ brokerSession        = (*mqtt.Client)(nil)
	_ dispatcher           = (*appinventor.Bridge)(nil)
	_ appinventor.Metrics  = (*metrics.Bridge)(nil)
	_ appinventor.Recorder = (*influxdb.Client)(nil)
	_ backend              = (*influxdb.Client)(nil)
	_ pinRegistry          = (*gpio.Controller)(nil)
)
