package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iraxa/shopclient/internal/domain"
)

// Profile fetches the live profile for the current token.
func (c *Client) Profile(ctx context.Context) (domain.User, error) {
	var resp struct {
		User domain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &resp); err != nil {
		return domain.User{}, err
	}
	return resp.User, nil
}

type cartResponse struct {
	Items []domain.CartItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
}

func (r cartResponse) cart() domain.Cart {
	return domain.Cart{Items: r.Items, Loaded: true}
}

func (c *Client) FetchCart(ctx context.Context) (domain.Cart, error) {
	var resp cartResponse
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &resp); err != nil {
		return domain.Cart{}, err
	}
	return resp.cart(), nil
}

// AddItemRequest mirrors the add-to-cart body: the price is snapshotted at
// the moment of addition, variant and image ride along for display.
type AddItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  uint            `json:"quantity"`
	UnitPrice decimal.Decimal `json:"priceAtTimeOfAddition"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Image     string          `json:"image"`
}

func (c *Client) AddToCart(ctx context.Context, req AddItemRequest) (domain.Cart, error) {
	var resp cartResponse
	if err := c.do(ctx, http.MethodPost, "/cart/add", req, &resp); err != nil {
		return domain.Cart{}, err
	}
	return resp.cart(), nil
}

func (c *Client) UpdateQuantity(ctx context.Context, itemID string, quantity uint) (domain.Cart, error) {
	body := struct {
		Quantity uint `json:"quantity"`
	}{Quantity: quantity}

	var resp cartResponse
	if err := c.do(ctx, http.MethodPut, "/cart/update/"+itemID, body, &resp); err != nil {
		return domain.Cart{}, err
	}
	return resp.cart(), nil
}

func (c *Client) RemoveItem(ctx context.Context, itemID string) (domain.Cart, error) {
	var resp cartResponse
	if err := c.do(ctx, http.MethodDelete, "/cart/remove/"+itemID, nil, &resp); err != nil {
		return domain.Cart{}, err
	}
	return resp.cart(), nil
}

func (c *Client) ListAddresses(ctx context.Context) ([]domain.Address, error) {
	var resp struct {
		Addresses []domain.Address `json:"addresses"`
	}
	if err := c.do(ctx, http.MethodGet, "/address", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

func (c *Client) CreateAddress(ctx context.Context, addr domain.Address) (domain.Address, error) {
	var resp struct {
		Address domain.Address `json:"address"`
	}
	if err := c.do(ctx, http.MethodPost, "/address", addr, &resp); err != nil {
		return domain.Address{}, err
	}
	return resp.Address, nil
}

func (c *Client) UpdateAddress(ctx context.Context, addr domain.Address) (domain.Address, error) {
	var resp struct {
		Address domain.Address `json:"address"`
	}
	if err := c.do(ctx, http.MethodPut, "/address/"+addr.ID, addr, &resp); err != nil {
		return domain.Address{}, err
	}
	return resp.Address, nil
}

func (c *Client) DeleteAddress(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/address/"+id, nil, nil)
}

// CreatePaymentSession asks the server for a fresh gateway order scoped to
// amount. Every checkout attempt needs its own session; the receipt id makes
// attempts distinguishable server-side.
func (c *Client) CreatePaymentSession(ctx context.Context, amount decimal.Decimal) (domain.PaymentSession, error) {
	body := struct {
		Amount  decimal.Decimal `json:"amount"`
		Receipt string          `json:"receipt"`
	}{Amount: amount, Receipt: uuid.NewString()}

	var resp domain.PaymentSession
	if err := c.do(ctx, http.MethodPost, "/payment/create-order", body, &resp); err != nil {
		return domain.PaymentSession{}, err
	}
	return resp, nil
}

// VerifyPaymentRequest carries the gateway's signed identifiers back to the
// server together with what was bought and where it ships.
type VerifyPaymentRequest struct {
	GatewayOrderID   string      `json:"razorpay_order_id"`
	GatewayPaymentID string      `json:"razorpay_payment_id"`
	GatewaySignature string      `json:"razorpay_signature"`
	Cart             domain.Cart `json:"cart"`
	AddressID        string      `json:"addressId"`
}

func (c *Client) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) error {
	return c.do(ctx, http.MethodPost, "/payment/verify", req, nil)
}

func (c *Client) MyOrders(ctx context.Context) ([]domain.Order, error) {
	var resp []domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders/my-orders", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
