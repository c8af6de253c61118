package callback

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iraxa/shopclient/internal/checkout"
	"github.com/iraxa/shopclient/internal/domain"
)

type fakeSessions struct {
	tokens []string
	err    error
}

func (f *fakeSessions) CompleteLogin(_ context.Context, token string) error {
	if f.err != nil {
		return f.err
	}
	f.tokens = append(f.tokens, token)
	return nil
}

type fakeCheckouts struct {
	callbacks   []checkout.CallbackPayload
	dismissals  int
	callbackErr error
	dismissErr  error
}

func (f *fakeCheckouts) HandleGatewayCallback(_ context.Context, p checkout.CallbackPayload) error {
	if f.callbackErr != nil {
		return f.callbackErr
	}
	f.callbacks = append(f.callbacks, p)
	return nil
}

func (f *fakeCheckouts) HandleDismiss() error {
	if f.dismissErr != nil {
		return f.dismissErr
	}
	f.dismissals++
	return nil
}

type serverEnv struct {
	srv       *Server
	sessions  *fakeSessions
	checkouts *fakeCheckouts
	widget    *WidgetGate
}

func newServerEnv() *serverEnv {
	env := &serverEnv{
		sessions:  &fakeSessions{},
		checkouts: &fakeCheckouts{},
		widget:    NewWidgetGate(slog.Default()),
	}
	env.srv = New(env.sessions, env.checkouts, env.widget, slog.Default())
	return env
}

func (e *serverEnv) doRequest(method, target, body string) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return rec, e.srv.e.NewContext(req, rec)
}

func TestAuthCallback_CompletesLogin(t *testing.T) {
	t.Parallel()

	env := newServerEnv()
	rec, c := env.doRequest(http.MethodGet, "/auth/callback?token=tok-42", "")

	require.NoError(t, env.srv.AuthCallback(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"tok-42"}, env.sessions.tokens, "exactly one login per landing")
}

func TestAuthCallback_MissingToken(t *testing.T) {
	t.Parallel()

	env := newServerEnv()
	rec, c := env.doRequest(http.MethodGet, "/auth/callback", "")

	require.NoError(t, env.srv.AuthCallback(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.sessions.tokens)
}

func TestAuthCallback_LoginFailure(t *testing.T) {
	t.Parallel()

	env := newServerEnv()
	env.sessions.err = errors.New("profile unreachable")
	rec, c := env.doRequest(http.MethodGet, "/auth/callback?token=tok", "")

	require.NoError(t, env.srv.AuthCallback(c))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPaymentCallback_ForwardsSignedPayload(t *testing.T) {
	t.Parallel()

	env := newServerEnv()
	body := `{"razorpay_order_id":"order_a","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`
	rec, c := env.doRequest(http.MethodPost, "/payment/callback", body)

	require.NoError(t, env.srv.PaymentCallback(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.checkouts.callbacks, 1)
	assert.Equal(t, "order_a", env.checkouts.callbacks[0].GatewayOrderID)
	assert.Equal(t, "pay_1", env.checkouts.callbacks[0].GatewayPaymentID)
	assert.Equal(t, "sig", env.checkouts.callbacks[0].GatewaySignature)
}

func TestPaymentCallback_RejectsIncompletePayload(t *testing.T) {
	t.Parallel()

	env := newServerEnv()
	rec, c := env.doRequest(http.MethodPost, "/payment/callback", `{"razorpay_order_id":"order_a"}`)

	require.NoError(t, env.srv.PaymentCallback(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.checkouts.callbacks)
}

func TestPaymentCallback_NoCheckoutAwaiting(t *testing.T) {
	t.Parallel()

	env := newServerEnv()
	env.checkouts.callbackErr = checkout.ErrIllegalTransition
	body := `{"razorpay_order_id":"order_a","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`
	rec, c := env.doRequest(http.MethodPost, "/payment/callback", body)

	require.NoError(t, env.srv.PaymentCallback(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPaymentSession_ServesParkedInvocation(t *testing.T) {
	t.Parallel()

	env := newServerEnv()

	rec, c := env.doRequest(http.MethodGet, "/payment/session", "")
	require.NoError(t, env.srv.PaymentSession(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, env.widget.Open(domain.PaymentSession{
		GatewayOrderID: "order_a",
		Amount:         decimal.NewFromInt(4050),
		Currency:       "INR",
	}, checkout.Prefill{Name: "Asha Rao", Phone: "9999999999"}))

	rec, c = env.doRequest(http.MethodGet, "/payment/session", "")
	require.NoError(t, env.srv.PaymentSession(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var inv Invocation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.Equal(t, "order_a", inv.GatewayOrderID)
	assert.Equal(t, "4050", inv.Amount)
	assert.Equal(t, "INR", inv.Currency)
	assert.Equal(t, "Asha Rao", inv.Prefill.Name)
}

func TestPaymentCallback_ClearsParkedInvocation(t *testing.T) {
	t.Parallel()

	env := newServerEnv()
	require.NoError(t, env.widget.Open(domain.PaymentSession{GatewayOrderID: "order_a"}, checkout.Prefill{}))

	body := `{"razorpay_order_id":"order_a","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`
	_, c := env.doRequest(http.MethodPost, "/payment/callback", body)
	require.NoError(t, env.srv.PaymentCallback(c))

	_, ok := env.widget.Current()
	assert.False(t, ok)
}

func TestPaymentDismiss(t *testing.T) {
	t.Parallel()

	env := newServerEnv()
	rec, c := env.doRequest(http.MethodPost, "/payment/dismiss", "")

	require.NoError(t, env.srv.PaymentDismiss(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.checkouts.dismissals)
}

func TestPaymentDismiss_NoCheckoutAwaiting(t *testing.T) {
	t.Parallel()

	env := newServerEnv()
	env.checkouts.dismissErr = checkout.ErrIllegalTransition
	rec, c := env.doRequest(http.MethodPost, "/payment/dismiss", "")

	require.NoError(t, env.srv.PaymentDismiss(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
