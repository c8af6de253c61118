package callback

import (
	"log/slog"
	"sync"

	"github.com/iraxa/shopclient/internal/checkout"
	"github.com/iraxa/shopclient/internal/domain"
)

// Invocation is what the hosted payment page needs to open the gateway
// widget: the session identifiers, the amount and the payer prefill.
type Invocation struct {
	GatewayOrderID string           `json:"gatewayOrderId"`
	Amount         string           `json:"amount"`
	Currency       string           `json:"currency"`
	Prefill        checkout.Prefill `json:"prefill"`
}

// WidgetGate is the hand-off point between the orchestrator and the external
// widget. Open parks the current payment session; the hosted page fetches it
// and reports the outcome back through the payment endpoints.
type WidgetGate struct {
	mu      sync.Mutex
	current *Invocation
	log     *slog.Logger
}

func NewWidgetGate(log *slog.Logger) *WidgetGate {
	return &WidgetGate{log: log}
}

func (g *WidgetGate) Open(session domain.PaymentSession, prefill checkout.Prefill) error {
	g.mu.Lock()
	g.current = &Invocation{
		GatewayOrderID: session.GatewayOrderID,
		Amount:         session.Amount.String(),
		Currency:       session.Currency,
		Prefill:        prefill,
	}
	g.mu.Unlock()

	g.log.Info("payment_widget_opened", "gateway_order_id", session.GatewayOrderID)
	return nil
}

// Current returns the parked invocation, or ok=false when no checkout is
// waiting on the widget.
func (g *WidgetGate) Current() (Invocation, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return Invocation{}, false
	}
	return *g.current, true
}

func (g *WidgetGate) Clear() {
	g.mu.Lock()
	g.current = nil
	g.mu.Unlock()
}
