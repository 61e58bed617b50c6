package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/storefront/internal/basket"
	"github.com/dshills/storefront/internal/catalog"
	"github.com/dshills/storefront/internal/config"
	"github.com/dshills/storefront/internal/event"
	"github.com/dshills/storefront/internal/state"
)

func testConfig() *config.Config {
	return &config.Config{
		API: config.API{
			Origin:  "http://localhost:3000",
			Timeout: config.Duration(time.Second),
			Burst:   1,
		},
		Logging: config.Logging{Level: "info"},
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(Options{})
	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("New() error = %v, want *InitError", err)
	}
}

func TestNew_BadOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.API.Origin = "not a url"

	_, err := New(Options{Config: cfg, Logger: NullLogger()})
	var initErr *InitError
	if !errors.As(err, &initErr) || initErr.Component != "shop api" {
		t.Fatalf("New() error = %v, want shop api *InitError", err)
	}
}

func TestApplication_Run(t *testing.T) {
	app, err := New(Options{
		Config:  testConfig(),
		Logger:  NullLogger(),
		Catalog: &fakeCatalog{products: []catalog.Product{lamp, table}},
		Orders:  &fakeOrders{},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	catalogs := make(chan state.CatalogChange, 1)
	baskets := make(chan int, 4)
	var catalogSource string
	_, err = event.On(app.Subscriptions(), state.CatalogChanged, func(ctx context.Context, c state.CatalogChange) error {
		if env, ok := event.FromContext(ctx); ok {
			catalogSource = env.Metadata.Source
		}
		catalogs <- c
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = event.On(app.Subscriptions(), state.BasketChanged, func(_ context.Context, b basket.Basket) error {
		baskets <- b.Len()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- app.Run(ctx) }()

	select {
	case c := <-catalogs:
		if len(c.Catalog) != 2 {
			t.Errorf("catalog size = %d, want 2", len(c.Catalog))
		}
		if catalogSource != "app" {
			t.Errorf("catalog-changed source = %q, want app", catalogSource)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for catalog")
	}
	if !app.IsRunning() {
		t.Error("IsRunning() = false while running")
	}
	if err := app.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}

	console := app.Emitter("console")
	if err := event.Emit(ctx, console, BasketToggle, lamp); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if n := <-baskets; n != 1 {
		t.Errorf("basket size = %d, want 1", n)
	}

	families, err := app.Metrics().Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "storefront_basket_items" {
			found = true
			if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 1 {
				t.Errorf("storefront_basket_items = %v, want 1", v)
			}
		}
	}
	if !found {
		t.Error("storefront_basket_items not gathered")
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if err := event.Emit(context.Background(), console, BasketToggle, table); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Emit() after shutdown error = %v, want ErrLoopStopped", err)
	}
}

func TestApplication_ApplyConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelWarn, Output: &buf})

	app, err := New(Options{
		Config:  testConfig(),
		Logger:  logger,
		Catalog: &fakeCatalog{},
		Orders:  &fakeOrders{},
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Logging.Level = "debug"
	app.applyConfig(cfg)

	if logger.Level() != LogLevelDebug {
		t.Errorf("Level() = %v, want DEBUG", logger.Level())
	}
}

func TestBuildInfo(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "1.2.3"
	if got := BuildInfo(); got != "1.2.3" {
		t.Errorf("BuildInfo() = %q, want 1.2.3", got)
	}
}
