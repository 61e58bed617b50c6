// Package console is a line-oriented front end for the storefront. It turns
// typed commands into intents and prints the result events it receives.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dshills/storefront/internal/app"
	"github.com/dshills/storefront/internal/basket"
	"github.com/dshills/storefront/internal/catalog"
	"github.com/dshills/storefront/internal/event"
	"github.com/dshills/storefront/internal/order"
	"github.com/dshills/storefront/internal/state"
	"github.com/dshills/storefront/internal/validation"
)

// Errors returned by Execute.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
	ErrNoSelection    = errors.New("no product selected")
	ErrNotFound       = errors.New("no such product")
	ErrStepIncomplete = errors.New("step incomplete")
	ErrNotForSale     = errors.New("not for sale")
)

// step is the form step the customer is on.
type step int

const (
	stepBrowse step = iota
	stepOrder
	stepContacts
)

// Fields shown on each form step.
var (
	orderFields    = []order.Field{order.FieldPayment, order.FieldAddress}
	contactsFields = []order.Field{order.FieldEmail, order.FieldPhone}
)

// Options configures a Console.
type Options struct {
	In  io.Reader
	Out io.Writer

	// Emitter carries intents, normally app.Application.Emitter("console").
	Emitter event.Emitter

	// Bus is where result events are subscribed.
	Bus event.Bus

	// Source is the event source of Emitter. Navigation intents from other
	// sources are not rendered. Defaults to "console".
	Source string

	// Prompt prints "> " before each line is read.
	Prompt bool
}

// Console reads commands and renders the storefront as text.
type Console struct {
	in      io.Reader
	emitter event.Emitter
	sub     *event.Subscriber
	source  string
	prompt  bool

	mu       sync.Mutex
	out      io.Writer
	products []catalog.Product
	preview  *catalog.Product
	basket   basket.Basket
	errs     validation.Errors
	step     step
}

// New creates a console and subscribes it to the result events.
func New(opts Options) (*Console, error) {
	if opts.Emitter == nil || opts.Bus == nil {
		return nil, errors.New("console: emitter and bus are required")
	}
	if opts.Source == "" {
		opts.Source = "console"
	}
	c := &Console{
		source:  opts.Source,
		in:      opts.In,
		out:     opts.Out,
		emitter: opts.Emitter,
		sub:     event.NewSubscriber(opts.Bus),
		prompt:  opts.Prompt,
	}
	if c.out == nil {
		c.out = io.Discard
	}
	if err := c.subscribe(); err != nil {
		_ = c.sub.Close()
		return nil, err
	}
	return c, nil
}

func (c *Console) subscribe() error {
	var errs []error
	add := func(_ event.Subscription, err error) {
		errs = append(errs, err)
	}
	add(event.On(c.sub, state.CatalogChanged, c.onCatalog))
	add(event.On(c.sub, state.PreviewChanged, c.onPreview))
	add(event.On(c.sub, state.BasketChanged, c.onBasket))
	add(event.On(c.sub, state.FormErrorsChanged, c.onFormErrors))
	own := event.WithFilter(event.FilterBySource(c.source))
	add(event.On(c.sub, app.BasketOpen, c.onBasketOpen, own))
	add(event.On(c.sub, app.OrderOpen, c.onOrderOpen, own))
	add(event.On(c.sub, app.OrderSubmit, c.onOrderSubmit, own))
	add(event.On(c.sub, app.OrderSucceeded, c.onOrderSucceeded))
	add(event.On(c.sub, app.OrderFailed, c.onFailure("order")))
	add(event.On(c.sub, app.CatalogFailed, c.onFailure("catalog")))
	return errors.Join(errs...)
}

// Close unsubscribes the console.
func (c *Console) Close() error {
	return c.sub.Close()
}

// Run executes commands from the input until it is exhausted, "quit" is
// entered or ctx is done. Command errors are printed, not returned.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	c.help()
	for {
		if c.prompt {
			c.printf("> ")
		}
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			quit, err := c.Execute(ctx, line)
			if err != nil {
				c.printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// Execute runs one command line. It returns true when the line asks to quit.
func (c *Console) Execute(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help":
		c.help()
	case "catalog":
		c.listCatalog()
	case "show":
		p, err := c.lookup(arg, c.catalogIDs())
		if err != nil {
			return false, err
		}
		return false, event.Emit(ctx, c.emitter, app.ProductSelected, p)
	case "toggle":
		c.mu.Lock()
		p := c.preview
		c.mu.Unlock()
		if p == nil {
			return false, ErrNoSelection
		}
		if p.IsPriceless() {
			return false, fmt.Errorf("%w: %s", ErrNotForSale, p.Title)
		}
		return false, event.Emit(ctx, c.emitter, app.BasketToggle, *p)
	case "remove":
		p, err := c.lookup(arg, c.basketIDs())
		if err != nil {
			return false, err
		}
		return false, event.Emit(ctx, c.emitter, app.BasketRemove, p)
	case "basket":
		return false, event.Emit(ctx, c.emitter, app.BasketOpen, struct{}{})
	case "order":
		return false, event.Emit(ctx, c.emitter, app.OrderOpen, struct{}{})
	case "payment":
		return false, c.change(ctx, app.OrderFieldChanged(order.FieldPayment), order.FieldPayment, arg)
	case "address":
		return false, c.change(ctx, app.OrderFieldChanged(order.FieldAddress), order.FieldAddress, arg)
	case "email":
		return false, c.change(ctx, app.ContactsFieldChanged(order.FieldEmail), order.FieldEmail, arg)
	case "phone":
		return false, c.change(ctx, app.ContactsFieldChanged(order.FieldPhone), order.FieldPhone, arg)
	case "next":
		if err := c.stepReady(orderFields); err != nil {
			return false, err
		}
		return false, event.Emit(ctx, c.emitter, app.OrderSubmit, struct{}{})
	case "submit":
		return false, event.Emit(ctx, c.emitter, app.ContactsSubmit, struct{}{})
	default:
		return false, fmt.Errorf("%w %q, try help", ErrUnknownCommand, cmd)
	}
	return false, nil
}

func (c *Console) change(ctx context.Context, k event.Key[order.FieldChange], f order.Field, value string) error {
	if f == order.FieldPayment {
		if _, err := order.ParsePaymentMethod(value); err != nil {
			return fmt.Errorf("%w: payment card|cash", ErrUsage)
		}
	}
	return event.Emit(ctx, c.emitter, k, order.FieldChange{Field: f.String(), Value: value})
}

// stepReady reports whether every field on a step has been checked and
// passed.
func (c *Console) stepReady(fields []order.Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range fields {
		if f == order.FieldPayment {
			continue
		}
		msg, checked := c.errs[f]
		if !checked {
			return fmt.Errorf("%w: %s is required", ErrStepIncomplete, f)
		}
		if msg != "" {
			return fmt.Errorf("%w: %s", ErrStepIncomplete, msg)
		}
	}
	return nil
}

// lookup resolves arg as a 1-based position in ids or as a product id.
func (c *Console) lookup(arg string, ids []string) (catalog.Product, error) {
	if arg == "" {
		return catalog.Product{}, fmt.Errorf("%w: <id|n>", ErrUsage)
	}
	id := arg
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(ids) {
			return catalog.Product{}, fmt.Errorf("%w: %d", ErrNotFound, n)
		}
		id = ids[n-1]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := catalog.Find(c.products, id)
	if !ok {
		return catalog.Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

func (c *Console) catalogIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.products))
	for i, p := range c.products {
		ids[i] = p.ID
	}
	return ids
}

func (c *Console) basketIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.basket.Items...)
}

// Event handlers. They run on the mutation loop.

func (c *Console) onCatalog(_ context.Context, change state.CatalogChange) error {
	c.mu.Lock()
	c.products = change.Catalog
	c.mu.Unlock()
	c.printf("catalog: %d products\n", len(change.Catalog))
	return nil
}

func (c *Console) onPreview(_ context.Context, p catalog.Product) error {
	c.mu.Lock()
	c.preview = &p
	c.mu.Unlock()
	c.printPreview()
	return nil
}

func (c *Console) onBasket(_ context.Context, b basket.Basket) error {
	c.mu.Lock()
	c.basket = b
	c.mu.Unlock()
	c.printf("basket: %d item(s), total %s\n", b.Len(), catalog.FormatUnits(b.Total))
	return nil
}

func (c *Console) onFormErrors(_ context.Context, errs validation.Errors) error {
	c.mu.Lock()
	c.errs = errs
	fields := contactsFields
	if c.step != stepContacts {
		fields = orderFields
	}
	c.mu.Unlock()

	if msg := errs.Messages(fields...); msg != "" {
		c.printf("form: %s\n", msg)
	}
	return nil
}

func (c *Console) onBasketOpen(context.Context, struct{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.basket.IsEmpty() {
		fmt.Fprintln(c.out, "basket is empty")
		return nil
	}
	for i, id := range c.basket.Items {
		title := id
		if p, ok := catalog.Find(c.products, id); ok {
			title = p.Title + "  " + p.FormatPrice()
		}
		fmt.Fprintf(c.out, "%3d. %s\n", i+1, title)
	}
	fmt.Fprintf(c.out, "total: %s\n", catalog.FormatUnits(c.basket.Total))
	return nil
}

func (c *Console) onOrderOpen(context.Context, struct{}) error {
	c.setStep(stepOrder)
	c.printf("order: set payment <card|cash> and address <text>, then next\n")
	return nil
}

func (c *Console) onOrderSubmit(context.Context, struct{}) error {
	c.setStep(stepContacts)
	c.printf("contacts: set email <text> and phone <text>, then submit\n")
	return nil
}

func (c *Console) onOrderSucceeded(_ context.Context, r order.Result) error {
	c.setStep(stepBrowse)
	c.printf("order %s placed, charged %s\n", r.ID, catalog.FormatUnits(r.Total))
	return nil
}

func (c *Console) onFailure(what string) func(context.Context, error) error {
	return func(_ context.Context, err error) error {
		c.printf("%s failed: %v\n", what, err)
		return nil
	}
}

func (c *Console) setStep(s step) {
	c.mu.Lock()
	c.step = s
	c.mu.Unlock()
}

// Rendering.

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) listCatalog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.products) == 0 {
		fmt.Fprintln(c.out, "catalog is empty")
		return
	}
	for i, p := range c.products {
		mark := ""
		if c.basket.Contains(p.ID) {
			mark = "  [in basket]"
		}
		fmt.Fprintf(c.out, "%3d. %s  %s  (%s)%s\n", i+1, p.Title, p.FormatPrice(), p.Category, mark)
	}
}

func (c *Console) printPreview() {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.preview
	if p == nil {
		return
	}
	fmt.Fprintf(c.out, "%s [%s]\n", p.Title, p.Category)
	if p.Description != "" {
		fmt.Fprintf(c.out, "  %s\n", p.Description)
	}
	fmt.Fprintf(c.out, "  price: %s\n", p.FormatPrice())

	switch {
	case p.IsPriceless():
		fmt.Fprintln(c.out, "  not for sale")
	case c.basket.Contains(p.ID):
		fmt.Fprintln(c.out, "  toggle: remove from basket")
	default:
		fmt.Fprintln(c.out, "  toggle: add to basket")
	}
}

func (c *Console) help() {
	c.printf(`commands:
  catalog               list products
  show <n|id>           preview a product
  toggle                add or remove the previewed product
  basket                list the basket
  remove <n|id>         remove a basket item
  order                 start checkout
  payment <card|cash>   choose payment
  address <text>        delivery address
  next                  continue to contacts
  email <text>          contact email
  phone <text>          contact phone
  submit                place the order
  quit                  exit
`)
}
