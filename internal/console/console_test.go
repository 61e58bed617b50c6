package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/storefront/internal/app"
	"github.com/dshills/storefront/internal/catalog"
	"github.com/dshills/storefront/internal/config"
	"github.com/dshills/storefront/internal/event"
	"github.com/dshills/storefront/internal/order"
	"github.com/dshills/storefront/internal/validation"
)

var (
	lamp   = catalog.Product{ID: "p-lamp", Title: "Lamp", Category: "light", Price: catalog.Price(750)}
	table  = catalog.Product{ID: "p-table", Title: "Table", Category: "furniture", Price: catalog.Price(1200)}
	poster = catalog.Product{ID: "p-poster", Title: "Poster", Category: "art"}
)

type fakeCatalog struct {
	products []catalog.Product
	err      error
}

func (f *fakeCatalog) FetchCatalog(context.Context) ([]catalog.Product, error) {
	return f.products, f.err
}

type fakeOrders struct {
	result order.Result
}

func (f *fakeOrders) SubmitOrder(context.Context, order.Draft) (order.Result, error) {
	return f.result, nil
}

// syncBuffer is written on the mutation loop and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func waitFor(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output never contained %q:\n%s", want, out.String())
}

// start runs an application with fake collaborators and a console attached
// to it, and waits for the catalog to arrive.
func start(t *testing.T, catalogSource *fakeCatalog) (*Console, *syncBuffer) {
	t.Helper()

	application, err := app.New(app.Options{
		Config: &config.Config{
			API:     config.API{Origin: "http://localhost:3000", Timeout: config.Duration(time.Second), Burst: 1},
			Logging: config.Logging{Level: "error"},
		},
		Logger:  app.NullLogger(),
		Catalog: catalogSource,
		Orders:  &fakeOrders{result: order.Result{ID: "o-1", Total: 750}},
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	out := &syncBuffer{}
	c, err := New(Options{Out: out, Emitter: application.Emitter("console"), Bus: application.Bus()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = application.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	if catalogSource.err == nil {
		waitFor(t, out, "catalog: ")
	}
	return c, out
}

func run(t *testing.T, c *Console, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if _, err := c.Execute(context.Background(), line); err != nil {
			t.Fatalf("Execute(%q) error = %v", line, err)
		}
	}
}

func TestNew_RequiresEmitterAndBus(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New() without emitter and bus should fail")
	}
}

func TestConsole_Browse(t *testing.T) {
	c, out := start(t, &fakeCatalog{products: []catalog.Product{lamp, table, poster}})

	if !strings.Contains(out.String(), "catalog: 3 products") {
		t.Errorf("catalog announcement missing:\n%s", out)
	}

	steps := []struct {
		line string
		want []string
	}{
		{"catalog", []string{"1. Lamp  750 units  (light)", "3. Poster  priceless  (art)"}},
		{"show 1", []string{"Lamp [light]", "price: 750 units", "toggle: add to basket"}},
		{"toggle", []string{"basket: 1 item(s), total 750 units"}},
		{"show p-lamp", []string{"toggle: remove from basket"}},
		{"catalog", []string{"Lamp  750 units  (light)  [in basket]"}},
		{"show 2", []string{"Table [furniture]"}},
		{"toggle", []string{"basket: 2 item(s), total 1950 units"}},
		{"basket", []string{"1. Lamp  750 units", "2. Table  1200 units", "total: 1950 units"}},
		{"remove 1", []string{"basket: 1 item(s), total 1200 units"}},
		{"show 3", []string{"not for sale"}},
	}
	for _, s := range steps {
		t.Run(s.line, func(t *testing.T) {
			out.Reset()
			run(t, c, s.line)
			for _, want := range s.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestConsole_Checkout(t *testing.T) {
	c, out := start(t, &fakeCatalog{products: []catalog.Product{lamp, table}})

	run(t, c, "show 1", "toggle", "order")
	waitFor(t, out, "order: set payment")

	if _, err := c.Execute(context.Background(), "next"); !errors.Is(err, ErrStepIncomplete) {
		t.Errorf("next before address error = %v, want ErrStepIncomplete", err)
	}
	if _, err := c.Execute(context.Background(), "payment bitcoin"); !errors.Is(err, ErrUsage) {
		t.Errorf("payment bitcoin error = %v, want ErrUsage", err)
	}

	run(t, c, "payment cash", "address 12")
	if _, err := c.Execute(context.Background(), "next"); !errors.Is(err, ErrStepIncomplete) {
		t.Errorf("next with short address error = %v, want ErrStepIncomplete", err)
	}
	waitFor(t, out, "form: "+validation.MsgAddress)

	run(t, c, "address 12 Market Street", "next")
	waitFor(t, out, "contacts: set email")

	out.Reset()
	run(t, c, "email bad")
	waitFor(t, out, validation.MsgEmail)

	run(t, c, "email buyer@shop.ru", "phone +7 (999) 123-45-67", "submit")
	waitFor(t, out, "order o-1 placed, charged 750 units")
	waitFor(t, out, "basket: 0 item(s), total 0 units")
}

func TestConsole_CatalogFailure(t *testing.T) {
	_, out := start(t, &fakeCatalog{err: errors.New("connection refused")})
	waitFor(t, out, "catalog failed: ")
	waitFor(t, out, "connection refused")
}

func TestConsole_ExecuteErrors(t *testing.T) {
	c, _ := start(t, &fakeCatalog{products: []catalog.Product{lamp, poster}})

	tests := []struct {
		line string
		want error
	}{
		{"bogus", ErrUnknownCommand},
		{"show", ErrUsage},
		{"show 9", ErrNotFound},
		{"show p-missing", ErrNotFound},
		{"toggle", ErrNoSelection},
		{"remove 1", ErrNotFound},
		{"payment", ErrUsage},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			quit, err := c.Execute(context.Background(), tt.line)
			if !errors.Is(err, tt.want) {
				t.Errorf("Execute(%q) error = %v, want %v", tt.line, err, tt.want)
			}
			if quit {
				t.Errorf("Execute(%q) asked to quit", tt.line)
			}
		})
	}

	run(t, c, "show 2")
	if _, err := c.Execute(context.Background(), "toggle"); !errors.Is(err, ErrNotForSale) {
		t.Errorf("toggle priceless error = %v, want ErrNotForSale", err)
	}
}

func TestConsole_Run(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"quit", "help\nbogus\nquit\ncatalog\n", []string{"commands:", "error: unknown command \"bogus\""}},
		{"eof", "catalog\n", []string{"catalog is empty"}},
		{"prompt", "quit\n", []string{"> "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := event.NewBus()
			var out bytes.Buffer
			c, err := New(Options{
				In:      strings.NewReader(tt.input),
				Out:     &out,
				Emitter: event.NewPublisher(bus, "console"),
				Bus:     bus,
				Prompt:  tt.name == "prompt",
			})
			if err != nil {
				t.Fatal(err)
			}
			defer c.Close()

			if err := c.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
			if tt.name == "quit" && strings.Contains(out.String(), "catalog is empty") {
				t.Error("commands after quit were executed")
			}
		})
	}
}

func TestConsole_RendersOnlyOwnIntents(t *testing.T) {
	bus := event.NewBus()
	var out bytes.Buffer
	c, err := New(Options{Out: &out, Emitter: event.NewPublisher(bus, "console"), Bus: bus})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := event.Emit(ctx, event.NewPublisher(bus, "web"), app.OrderOpen, struct{}{}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "order: set payment") {
		t.Errorf("rendered another front end's intent:\n%s", out.String())
	}

	run(t, c, "order")
	if !strings.Contains(out.String(), "order: set payment") {
		t.Errorf("own intent not rendered:\n%s", out.String())
	}
}
