// Package app wires the storefront together: it owns the event bus, the
// application state, the mutation loop that serializes every change, the
// controller that turns intents into mutations, the shop API client, the
// metrics endpoint and configuration reloads.
package app

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/storefront/internal/config"
	"github.com/dshills/storefront/internal/event"
	"github.com/dshills/storefront/internal/event/topic"
	"github.com/dshills/storefront/internal/metrics"
	"github.com/dshills/storefront/internal/shopapi"
	"github.com/dshills/storefront/internal/state"
)

// Application is the central coordinator for all storefront components.
type Application struct {
	config *config.Config
	opts   Options
	logger *Logger

	bus        event.Bus
	state      *state.State
	loop       *Loop
	controller *Controller
	metrics    *metrics.Metrics

	metricsServer *http.Server
	reloader      *config.Reloader

	running atomic.Bool
	wg      sync.WaitGroup
}

// Options configures the application.
type Options struct {
	// Config is the loaded configuration. Required.
	Config *config.Config

	// ConfigSource is used to reload the configuration when Config.Watch
	// is set and ConfigSource.Path is not empty.
	ConfigSource config.LoadOptions

	// Logger defaults to a stderr logger at Config.Logging.Level.
	Logger *Logger

	// Catalog and Orders default to a shop API client for
	// Config.API.Origin.
	Catalog CatalogSource
	Orders  OrderService
}

// New creates a new Application with the given options.
func New(opts Options) (*Application, error) {
	if opts.Config == nil {
		return nil, &InitError{Component: "config", Err: errors.New("no configuration")}
	}

	app := &Application{
		config:  opts.Config,
		opts:    opts,
		logger:  opts.Logger,
		metrics: metrics.New(),
	}
	if app.logger == nil {
		cfg := DefaultLoggerConfig()
		cfg.Level = ParseLogLevel(opts.Config.Logging.Level)
		app.logger = NewLogger(cfg)
	}

	if err := app.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	cfg := app.config
	log := app.logger.WithComponent("bus")

	// 1. Event Bus - messaging foundation
	app.bus = event.NewBus(
		event.WithStrict(cfg.Strict),
		event.WithRecorder(app.metrics),
		event.WithDefaultSource("app"),
		event.WithPanicHandler(func(env event.Envelope, recovered any, stack []byte) {
			log.Error("handler for %s from %s panicked: %v\n%s", env.Topic, env.Metadata.Source, recovered, stack)
		}),
	)

	// 2. State and the loop that owns it
	app.state = state.New(app.bus, state.WithStrict(cfg.Strict))
	app.loop = NewLoop(app.logger, cfg.Strict)

	// 3. Shop API
	catalogSource, orders := app.opts.Catalog, app.opts.Orders
	if catalogSource == nil || orders == nil {
		client, err := shopapi.New(cfg.API.Origin,
			shopapi.WithTimeout(cfg.API.Timeout.Std()),
			shopapi.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
			shopapi.WithObserver(app.metrics),
		)
		if err != nil {
			return &InitError{Component: "shop api", Err: err}
		}
		if catalogSource == nil {
			catalogSource = client
		}
		if orders == nil {
			orders = client
		}
	}

	// 4. Controller
	app.controller = NewController(ControllerConfig{
		State:    app.state,
		Bus:      app.bus,
		Loop:     app.loop,
		Catalog:  catalogSource,
		Orders:   orders,
		Observer: app.metrics,
		Logger:   app.logger,
	})

	// 5. Metrics endpoint
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.metrics.Handler())
		app.metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return nil
}

// Run starts the loop, loads the catalog and blocks until ctx is done,
// then shuts everything down.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := app.controller.Start(ctx); err != nil {
		return err
	}

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- app.loop.Run(ctx)
	}()

	app.startMetrics()
	app.startReloader()

	app.logger.Info("storefront started, api %s", app.config.API.Origin)
	app.controller.LoadCatalog(ctx)

	var err error
	select {
	case <-ctx.Done():
	case err = <-loopErr:
	}
	cancel()

	app.shutdown()
	return err
}

func (app *Application) startMetrics() {
	if app.metricsServer == nil {
		return
	}
	log := app.logger.WithComponent("metrics")
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		log.Info("serving metrics on %s", app.metricsServer.Addr)
		if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server: %v", err)
		}
	}()
}

func (app *Application) startReloader() {
	src := app.opts.ConfigSource
	if !app.config.Watch || src.Path == "" {
		return
	}
	log := app.logger.WithComponent("config")

	r, err := config.Watch(src, app.applyConfig, func(err error) {
		log.Warn("config reload failed: %v", err)
	})
	if err != nil {
		log.Warn("config watch disabled: %v", err)
		return
	}
	app.reloader = r
}

// applyConfig applies the settings that can change while running. The
// rest take effect on restart.
func (app *Application) applyConfig(cfg *config.Config) {
	level := ParseLogLevel(cfg.Logging.Level)
	if level != app.logger.Level() {
		app.logger.SetLevel(level)
		app.logger.WithComponent("config").Info("log level set to %s", level)
	}
}

// shutdown performs cleanup in reverse initialization order.
func (app *Application) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if app.reloader != nil {
		if err := app.reloader.Close(); err != nil {
			app.logger.Warn("closing config watcher: %v", err)
		}
	}

	if app.metricsServer != nil {
		if err := app.metricsServer.Shutdown(ctx); err != nil {
			app.logger.Warn("stopping metrics server: %v", err)
		}
	}
	app.wg.Wait()

	app.controller.Close()
	<-app.loop.Done()
	app.bus.Clear()

	stats := app.bus.Stats()
	app.logger.Info("storefront stopped: %d events, %d handler runs in %v, %d errors, %d panics",
		stats.EventsEmitted, stats.HandlersExecuted, stats.HandlerTime, stats.HandlerErrors, stats.HandlerPanics)
}

// Emitter returns an emitter that runs every emit on the mutation loop
// under the given source name. Front ends use it for their intents.
func (app *Application) Emitter(source string) event.Emitter {
	return &loopEmitter{loop: app.loop, pub: event.NewPublisher(app.bus, source)}
}

// Subscriptions returns where front ends register for result events.
// Handlers run on the mutation loop.
func (app *Application) Subscriptions() event.Registrar {
	return app.bus
}

// Bus returns the event bus.
func (app *Application) Bus() event.Bus {
	return app.bus
}

// Metrics returns the metrics collectors.
func (app *Application) Metrics() *metrics.Metrics {
	return app.metrics
}

// Logger returns the application logger.
func (app *Application) Logger() *Logger {
	return app.logger
}

// IsRunning returns true if the application is running.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// loopEmitter hops onto the loop before emitting.
type loopEmitter struct {
	loop *Loop
	pub  *event.Publisher
}

func (e *loopEmitter) Emit(ctx context.Context, t topic.Topic, payload any) error {
	return e.loop.Do(ctx, func(ctx context.Context) error {
		return e.pub.Emit(ctx, t, payload)
	})
}

// Version is reported by the binary; set with -ldflags.
var Version = "dev"

// BuildInfo returns the module version recorded by the Go toolchain, or
// Version when none is available.
func BuildInfo() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
