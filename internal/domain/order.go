package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSession is a single-use handle issued by the server for one checkout
// attempt. It must never be reused after a failed attempt.
type PaymentSession struct {
	GatewayOrderID string          `json:"orderId"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderFailed    OrderStatus = "failed"
)

func (s OrderStatus) Valid() error {
	switch s {
	case OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderFailed:
		return nil
	}
	return fmt.Errorf("unknown order status %q", string(s))
}

// Order is owned by the server; the client only reads it.
type Order struct {
	ID              string          `json:"_id"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress Address         `json:"shippingAddress"`
	Items           []CartItem      `json:"items"`
	CreatedAt       time.Time       `json:"createdAt"`
}
