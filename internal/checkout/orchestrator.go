// Package checkout drives one payment attempt from address selection to a
// terminal outcome. The flow is reactive: after handing the payment session
// to the external widget it does nothing until the widget's callback or the
// user's dismissal arrives.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/iraxa/shopclient/internal/api"
	"github.com/iraxa/shopclient/internal/domain"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNoAddress         = errors.New("no delivery address selected")
	ErrIllegalTransition = errors.New("illegal checkout transition")
)

// CallbackPayload carries the gateway's signed identifiers out of the
// widget's success callback; the server checks the signature.
type CallbackPayload struct {
	GatewayOrderID   string `json:"razorpay_order_id"`
	GatewayPaymentID string `json:"razorpay_payment_id"`
	GatewaySignature string `json:"razorpay_signature"`
}

type paymentAPI interface {
	CreatePaymentSession(ctx context.Context, amount decimal.Decimal) (domain.PaymentSession, error)
	VerifyPayment(ctx context.Context, req api.VerifyPaymentRequest) error
}

type cartSource interface {
	Snapshot() domain.Cart
	LoadForSession(ctx context.Context) error
}

// Widget is the hand-off to the external payment gateway's hosted surface.
// Open must return promptly; the outcome arrives through the orchestrator's
// HandleGatewayCallback or HandleDismiss.
type Widget interface {
	Open(session domain.PaymentSession, prefill Prefill) error
}

// Prefill is the contact data the widget pre-populates for the payer.
type Prefill struct {
	Name  string `json:"name"`
	Phone string `json:"contact"`
}

type Orchestrator struct {
	// OnSucceeded is the order-confirmation navigation hook. Optional.
	OnSucceeded func(order domain.PaymentSession)
	// OnFailed surfaces the terminal failure reason. Optional.
	OnFailed func(reason FailureReason)

	mu      sync.Mutex
	state   State
	reason  FailureReason
	address *domain.Address
	// session is the attempt in flight; discarded on every terminal state
	// so a later attempt can never reuse it.
	session  *domain.PaymentSession
	cartSnap domain.Cart

	payments    paymentAPI
	cart        cartSource
	widget      Widget
	shippingFee decimal.Decimal
	log         *slog.Logger
}

func New(payments paymentAPI, cart cartSource, widget Widget, shippingFee decimal.Decimal, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		state:       StateIdle,
		payments:    payments,
		cart:        cart,
		widget:      widget,
		shippingFee: shippingFee,
		log:         log,
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Reason() FailureReason {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reason
}

// SelectAddress records the delivery address for the next attempt. Allowed
// from Idle, after a failure, and over a previous selection.
func (o *Orchestrator) SelectAddress(addr domain.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !canTransition(o.state, StateAddressSelected) {
		return fmt.Errorf("select address in %s: %w", o.state, ErrIllegalTransition)
	}

	o.state = StateAddressSelected
	o.reason = ReasonNone
	o.address = &addr
	return nil
}

// PlaceOrder runs the attempt up to the widget hand-off: guards, amount,
// fresh payment session, open widget. A payment-session failure returns to
// Idle and is reported; nothing retries automatically.
func (o *Orchestrator) PlaceOrder(ctx context.Context) error {
	o.mu.Lock()

	if o.address == nil {
		o.mu.Unlock()
		return ErrNoAddress
	}
	if !canTransition(o.state, StateCreatingPaymentSession) {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("place order in %s: %w", state, ErrIllegalTransition)
	}

	snap := o.cart.Snapshot()
	if !snap.Loaded || snap.Empty() {
		o.mu.Unlock()
		return ErrEmptyCart
	}

	o.state = StateCreatingPaymentSession
	o.session = nil
	o.cartSnap = snap
	addr := *o.address
	o.mu.Unlock()

	amount := snap.Total(o.shippingFee)
	o.log.Info("payment_session_requested", "amount", amount.String())

	created, err := o.payments.CreatePaymentSession(ctx, amount)
	if err != nil {
		o.mu.Lock()
		o.state = StateIdle
		o.reason = ReasonSessionCreation
		o.mu.Unlock()
		return fmt.Errorf("create payment session: %w", err)
	}

	o.mu.Lock()
	o.session = &created
	o.state = StateAwaitingGatewayCallback
	o.mu.Unlock()

	if err := o.widget.Open(created, Prefill{Name: addr.FullName, Phone: addr.Phone}); err != nil {
		o.fail(ReasonGatewayUnavailable)
		return fmt.Errorf("open payment widget: %w", err)
	}

	o.log.Info("awaiting_gateway_callback", "gateway_order_id", created.GatewayOrderID)
	return nil
}

// HandleGatewayCallback is the widget's success path: the signed identifiers
// go to the server for verification, and only the server's answer decides
// the outcome.
func (o *Orchestrator) HandleGatewayCallback(ctx context.Context, payload CallbackPayload) error {
	o.mu.Lock()
	if !canTransition(o.state, StateVerifying) {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("gateway callback in %s: %w", state, ErrIllegalTransition)
	}
	o.state = StateVerifying
	snap := o.cartSnap
	addrID := o.address.ID
	o.mu.Unlock()

	err := o.payments.VerifyPayment(ctx, api.VerifyPaymentRequest{
		GatewayOrderID:   payload.GatewayOrderID,
		GatewayPaymentID: payload.GatewayPaymentID,
		GatewaySignature: payload.GatewaySignature,
		Cart:             snap,
		AddressID:        addrID,
	})
	if err != nil {
		// No order is assumed to exist; the cart stays as it was.
		o.fail(ReasonVerificationRejected)
		return fmt.Errorf("verify payment: %w", err)
	}

	o.mu.Lock()
	// Only a still-verifying attempt with its session intact may succeed;
	// anything else settled the attempt while verification was in flight.
	if o.state != StateVerifying || o.session == nil {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("verification settled in %s: %w", state, ErrIllegalTransition)
	}
	o.state = StateSucceeded
	o.reason = ReasonNone
	done := *o.session
	o.session = nil
	o.mu.Unlock()

	o.log.Info("checkout_succeeded", "gateway_order_id", done.GatewayOrderID)

	// The server has turned the cart into an order; refresh the local copy.
	if err := o.cart.LoadForSession(ctx); err != nil {
		o.log.Warn("cart_refresh_after_checkout_failed", "error", err)
	}

	if o.OnSucceeded != nil {
		o.OnSucceeded(done)
	}
	return nil
}

// HandleDismiss ends the attempt when the user closes the widget without
// paying. Deterministic exit from the waiting state; no verify call is made.
func (o *Orchestrator) HandleDismiss() error {
	o.mu.Lock()
	if o.state != StateAwaitingGatewayCallback {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("dismiss in %s: %w", state, ErrIllegalTransition)
	}
	// Check and transition in one critical section; a gateway callback
	// racing the dismissal must find the attempt already settled.
	o.state = StateFailed
	o.reason = ReasonUserCancelled
	o.session = nil
	o.mu.Unlock()

	o.log.Info("checkout_dismissed_by_user")
	o.announceFailure(ReasonUserCancelled)
	return nil
}

// Reset returns a terminal orchestrator to Idle for the next attempt. The
// selected address is kept; the payment session is already gone.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !canTransition(o.state, StateIdle) && o.state != StateIdle {
		return fmt.Errorf("reset in %s: %w", o.state, ErrIllegalTransition)
	}

	o.state = StateIdle
	if o.address != nil {
		o.state = StateAddressSelected
	}
	o.reason = ReasonNone
	o.session = nil
	o.cartSnap = domain.Cart{}
	return nil
}

// fail moves the attempt to Failed when the current state still allows it.
// A concurrent transition that already settled the attempt wins and the late
// failure is dropped.
func (o *Orchestrator) fail(reason FailureReason) {
	o.mu.Lock()
	if !canTransition(o.state, StateFailed) {
		state := o.state
		o.mu.Unlock()
		o.log.Warn("late_failure_dropped", "state", state.String(), "reason", string(reason))
		return
	}
	o.state = StateFailed
	o.reason = reason
	o.session = nil
	o.mu.Unlock()

	o.announceFailure(reason)
}

func (o *Orchestrator) announceFailure(reason FailureReason) {
	o.log.Info("checkout_failed", "reason", string(reason))
	if o.OnFailed != nil {
		o.OnFailed(reason)
	}
}
