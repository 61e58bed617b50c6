package app

import (
	"context"
	"errors"
	"sync"

	"github.com/dshills/storefront/internal/basket"
	"github.com/dshills/storefront/internal/catalog"
	"github.com/dshills/storefront/internal/event"
	"github.com/dshills/storefront/internal/metrics"
	"github.com/dshills/storefront/internal/order"
	"github.com/dshills/storefront/internal/state"
)

// CatalogSource loads the product catalog.
type CatalogSource interface {
	FetchCatalog(ctx context.Context) ([]catalog.Product, error)
}

// OrderService places orders.
type OrderService interface {
	SubmitOrder(ctx context.Context, d order.Draft) (order.Result, error)
}

// Observer is told about basket changes and order submissions.
// *metrics.Metrics implements it.
type Observer interface {
	ObserveBasket(b basket.Basket)
	OrderSubmitted(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveBasket(basket.Basket) {}
func (nopObserver) OrderSubmitted(string)       {}

// Controller turns intents into state mutations. Its handlers run on the
// loop goroutine because every emit does; network calls run on their own
// goroutines and post their results back to the loop.
type Controller struct {
	state    *state.State
	bus      event.Bus
	sub      *event.Subscriber
	pub      *event.Publisher
	loop     *Loop
	catalog  CatalogSource
	orders   OrderService
	observer Observer
	logger   *Logger

	ctx context.Context

	// submitting is only touched on the loop.
	submitting bool
	pending    sync.WaitGroup
}

// ControllerConfig holds a Controller's collaborators.
type ControllerConfig struct {
	State    *state.State
	Bus      event.Bus
	Loop     *Loop
	Catalog  CatalogSource
	Orders   OrderService
	Observer Observer
	Logger   *Logger
}

// NewController creates a controller. Call Start to subscribe it.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = NullLogger()
	}
	return &Controller{
		state:    cfg.State,
		bus:      cfg.Bus,
		sub:      event.NewSubscriber(cfg.Bus),
		pub:      event.NewPublisher(cfg.Bus, "controller"),
		loop:     cfg.Loop,
		catalog:  cfg.Catalog,
		orders:   cfg.Orders,
		observer: cfg.Observer,
		logger:   cfg.Logger.WithComponent("controller"),
	}
}

// Start registers the controller's subscriptions. Network calls started by
// handlers run under ctx.
func (c *Controller) Start(ctx context.Context) error {
	c.ctx = ctx
	subscribe := []func() error{
		func() error {
			_, err := event.On(c.sub, ProductSelected, logged(c.logger, "preview", c.state.PreviewProduct))
			return err
		},
		func() error {
			_, err := event.On(c.sub, BasketToggle, logged(c.logger, "toggle", c.state.ToggleBasket))
			return err
		},
		func() error {
			_, err := event.On(c.sub, BasketRemove, logged(c.logger, "remove", c.state.RemoveFromBasket))
			return err
		},
		func() error {
			_, err := event.OnPattern(c.sub, OrderFieldChanges, logged(c.logger, "update field", c.updateField))
			return err
		},
		func() error {
			_, err := event.OnPattern(c.sub, ContactsFieldChanges, logged(c.logger, "update field", c.updateField))
			return err
		},
		func() error {
			_, err := event.On(c.sub, ContactsSubmit, logged(c.logger, "submit", func(ctx context.Context, _ struct{}) error {
				return c.submit(ctx)
			}))
			return err
		},
		func() error {
			_, err := event.On(c.sub, state.BasketChanged, func(_ context.Context, b basket.Basket) error {
				c.observer.ObserveBasket(b)
				return nil
			})
			return err
		},
	}

	for _, fn := range subscribe {
		if err := fn(); err != nil {
			c.sub.Close()
			return &InitError{Component: "controller", Err: err}
		}
	}
	return nil
}

// Close removes the subscriptions and waits for in-flight network calls.
func (c *Controller) Close() {
	c.sub.Close()
	c.pending.Wait()
}

// logged wraps a typed handler so that failures are logged where they
// happen as well as returned to the emitter.
func logged[T any](l *Logger, op string, fn func(context.Context, T) error) func(context.Context, T) error {
	return func(ctx context.Context, payload T) error {
		err := fn(ctx, payload)
		if err != nil {
			target := ""
			if env, ok := event.FromContext(ctx); ok {
				target = env.Topic.String()
			}
			err = NewOperationError(op, target, err)
			l.Warn("%v", err)
		}
		return err
	}
}

func (c *Controller) updateField(ctx context.Context, change order.FieldChange) error {
	return c.state.UpdateOrderFieldName(ctx, change.Field, change.Value)
}

// LoadCatalog fetches the catalog in the background and installs it on the
// loop. A failure leaves the current catalog in place and emits
// CatalogFailed.
func (c *Controller) LoadCatalog(ctx context.Context) {
	if c.catalog == nil {
		c.logger.Warn("no catalog source configured")
		return
	}

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()

		products, err := c.catalog.FetchCatalog(ctx)
		postErr := c.loop.Post(func(ctx context.Context) {
			if err != nil {
				err = NewOperationError("fetch catalog", "", err)
				c.logger.Error("%v", err)
				c.report(event.Emit(ctx, c.pub, CatalogFailed, err))
				return
			}
			c.logger.Info("catalog loaded: %d products", len(products))
			c.report(c.state.SetCatalog(ctx, products))
		})
		if postErr != nil {
			c.logger.Debug("catalog result dropped: %v", postErr)
		}
	}()
}

// submit validates and commits the draft, then places the order in the
// background. At most one submission is in flight.
func (c *Controller) submit(ctx context.Context) error {
	if c.submitting {
		return ErrSubmitInFlight
	}

	ok, err := c.state.ValidateAndCommit(ctx)
	if !ok {
		if err != nil {
			return err
		}
		c.observer.OrderSubmitted(metrics.OrderRejected)
		return nil
	}
	// The draft is valid; a failing form-errors renderer does not veto it.
	if err != nil {
		c.logger.Warn("form errors handler failed: %v", err)
	}

	payload := c.state.OrderPayload()
	if len(payload.Items) == 0 {
		c.observer.OrderSubmitted(metrics.OrderRejected)
		return event.Emit(ctx, c.pub, OrderFailed, error(ErrEmptyBasket))
	}
	if c.orders == nil {
		return errors.New("no order service configured")
	}

	c.submitting = true
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()

		res, err := c.orders.SubmitOrder(c.ctx, payload)
		postErr := c.loop.Post(func(ctx context.Context) {
			c.submitting = false
			if err != nil {
				err = NewOperationError("submit order", "", err)
				c.logger.Error("%v", err)
				c.observer.OrderSubmitted(metrics.OrderFailed)
				c.report(event.Emit(ctx, c.pub, OrderFailed, err))
				return
			}
			c.logger.Info("order %s placed, total %d", res.ID, res.Total)
			c.observer.OrderSubmitted(metrics.OrderSucceeded)
			c.report(event.Emit(ctx, c.pub, OrderSucceeded, res))
			c.report(c.state.ClearBasket(ctx))
		})
		if postErr != nil {
			c.logger.Debug("order result dropped: %v", postErr)
		}
	}()
	return nil
}

// report logs an error from an emit made by the controller itself; there is
// no caller to hand it to.
func (c *Controller) report(err error) {
	if err != nil {
		c.logger.Warn("handler failed: %v", err)
	}
}
