// Package checkout drives a buyer's checkout from the client side: create the order,
// start a payment, hand the buyer to the provider, then poll the order until the
// webhook has settled it.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"qty"`
}

type Cart interface {
	Items() ([]CartItem, error)
	Clear() error
}

// PaymentHandle is what the buyer acts on after initiation.
type PaymentHandle struct {
	PaymentID   string            `json:"paymentId"`
	OrderID     string            `json:"orderId"`
	RedirectURL string            `json:"redirectUrl,omitempty"`
	QRCode      string            `json:"qrCode,omitempty"`
	FormFields  map[string]string `json:"formFields,omitempty"`
}

type InitiateParams struct {
	OrderID     string
	AmountCents int64
	Description string
	BuyerEmail  string
	BuyerName   string
}

type Backend interface {
	CreateOrder(ctx context.Context, items []CartItem) (*models.Order, error)
	InitiatePayment(ctx context.Context, method models.PaymentMethod, p InitiateParams) (*PaymentHandle, error)
	OrderStatus(ctx context.Context, orderID string) (*models.OrderStatusView, error)
}

type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
	BuyerEmail   string
	BuyerName    string
	// Sleep waits between polls; it returns early with ctx's error.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *zap.Logger
}

// DefaultConfig polls every 10 seconds, 30 times.
func DefaultConfig() Config {
	return Config{PollInterval: 10 * time.Second, MaxAttempts: 30}
}

func (c *Config) setDefaults() {
	def := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.Sleep == nil {
		c.Sleep = sleepContext
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Orchestrator is the client-side checkout state machine for one cart. A new
// payment may only be started from Idle or Failed.
type Orchestrator struct {
	backend Backend
	cart    Cart
	cfg     Config

	mu      sync.Mutex
	state   State
	order   *models.Order
	lastErr error
}

func New(backend Backend, cart Cart, cfg Config) *Orchestrator {
	cfg.setDefaults()
	return &Orchestrator{backend: backend, cart: cart, cfg: cfg, state: StateIdle}
}

// Resume attaches the orchestrator to an order whose payment is already underway,
// as on return from a provider redirect.
func Resume(backend Backend, cart Cart, cfg Config, orderID string) *Orchestrator {
	o := New(backend, cart, cfg)
	o.order = &models.Order{ID: orderID}
	o.state = StateRedirectedToProvider
	return o
}

// Retry attaches the orchestrator to an order whose last payment failed, ready to
// initiate again against the same order.
func Retry(backend Backend, cart Cart, cfg Config, orderID string) *Orchestrator {
	o := New(backend, cart, cfg)
	o.order = &models.Order{ID: orderID}
	o.state = StateFailed
	return o
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) OrderID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.order == nil {
		return ""
	}
	return o.order.ID
}

func (o *Orchestrator) transition(to State, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.state.CanTransition(to) {
		return &TransitionError{From: o.state, To: to}
	}
	o.cfg.Logger.Debug("Checkout transition", zap.String("from", string(o.state)), zap.String("to", string(to)))
	o.state = to
	o.lastErr = err
	return nil
}

// Start creates the order on first use and initiates a payment for it. Retrying
// from Failed reuses the same order.
func (o *Orchestrator) Start(ctx context.Context, method models.PaymentMethod, description string) (*PaymentHandle, error) {
	if err := o.transition(StateInitiating, nil); err != nil {
		return nil, err
	}

	o.mu.Lock()
	order := o.order
	o.mu.Unlock()

	switch {
	case order == nil:
		items, err := o.cart.Items()
		if err != nil {
			return nil, o.fail(fmt.Errorf("read cart: %w", err))
		}
		if len(items) == 0 {
			return nil, o.fail(fmt.Errorf("%w: cart is empty", models.ErrInvalidOrder))
		}
		order, err = o.backend.CreateOrder(ctx, items)
		if err != nil {
			return nil, o.fail(err)
		}
		o.setOrder(order)
	case order.TotalAmount.IsZero():
		// Resumed by id only; the stored total is the amount to claim.
		view, err := o.backend.OrderStatus(ctx, order.ID)
		if err != nil {
			return nil, o.fail(err)
		}
		order = &models.Order{ID: view.OrderID, TotalAmount: view.TotalAmount}
		o.setOrder(order)
	}

	handle, err := o.backend.InitiatePayment(ctx, method, InitiateParams{
		OrderID:     order.ID,
		AmountCents: models.ToCents(order.TotalAmount),
		Description: description,
		BuyerEmail:  o.cfg.BuyerEmail,
		BuyerName:   o.cfg.BuyerName,
	})
	if err != nil {
		return nil, o.fail(err)
	}

	next := StateRedirectedToProvider
	if handle.RedirectURL == "" && handle.QRCode != "" {
		next = StateAwaitingScanPayment
	}
	if err := o.transition(next, nil); err != nil {
		return nil, err
	}
	return handle, nil
}

func (o *Orchestrator) setOrder(order *models.Order) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.order = order
}

func (o *Orchestrator) fail(err error) error {
	o.cfg.Logger.Warn("Checkout failed", zap.Error(err))
	if terr := o.transition(StateFailed, err); terr != nil {
		return errors.Join(err, terr)
	}
	return err
}

// Await polls the order until it is paid, fails, or the attempt budget runs out.
// Running out yields TimedOut and ErrTimeout and leaves the order alone, since a
// late webhook may still settle it. Cancelling ctx abandons the poll.
func (o *Orchestrator) Await(ctx context.Context) (State, error) {
	if err := o.transition(StatePollingResult, nil); err != nil {
		return o.State(), err
	}
	orderID := o.OrderID()

	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		view, err := o.backend.OrderStatus(ctx, orderID)
		switch {
		case err != nil && ctx.Err() != nil:
			return StatePollingResult, ctx.Err()
		case err != nil:
			o.cfg.Logger.Warn("Order status poll failed", zap.Int("attempt", attempt), zap.Error(err))
		case view.PaymentStatus == models.PaymentPaid:
			return o.succeed()
		case view.Status == models.OrderFailed || view.Status == models.OrderCancelled || view.PaymentStatus == models.PaymentFailed:
			err := fmt.Errorf("payment for order %s did not complete (status=%s)", orderID, view.Status)
			_ = o.transition(StateFailed, err)
			return StateFailed, err
		}

		if attempt == o.cfg.MaxAttempts {
			break
		}
		if err := o.cfg.Sleep(ctx, o.cfg.PollInterval); err != nil {
			return StatePollingResult, err
		}
	}

	_ = o.transition(StateTimedOut, models.ErrTimeout)
	return StateTimedOut, models.ErrTimeout
}

func (o *Orchestrator) succeed() (State, error) {
	if err := o.transition(StateSuccess, nil); err != nil {
		return o.State(), err
	}
	if err := o.cart.Clear(); err != nil {
		o.cfg.Logger.Warn("Failed to clear cart", zap.Error(err))
	}
	return StateSuccess, nil
}
