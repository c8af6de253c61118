// Package callback hosts the local HTTP endpoints that outside parties land
// on: the identity provider's redirect return path and the payment widget's
// outcome reports. These are the only ways the session manager's login and
// the checkout orchestrator's waiting state are completed from outside.
package callback

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/iraxa/shopclient/internal/checkout"
	"github.com/iraxa/shopclient/internal/session"
)

type SessionService interface {
	CompleteLogin(ctx context.Context, token string) error
}

type CheckoutService interface {
	HandleGatewayCallback(ctx context.Context, payload checkout.CallbackPayload) error
	HandleDismiss() error
}

type Server struct {
	e         *echo.Echo
	sessions  SessionService
	checkouts CheckoutService
	widget    *WidgetGate
	log       *slog.Logger
}

func New(sessions SessionService, checkouts CheckoutService, widget *WidgetGate, log *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.Recover())

	s := &Server{
		e:         e,
		sessions:  sessions,
		checkouts: checkouts,
		widget:    widget,
		log:       log,
	}

	e.GET("/auth/callback", s.AuthCallback)
	e.GET("/payment/session", s.PaymentSession)
	e.POST("/payment/callback", s.PaymentCallback)
	e.POST("/payment/dismiss", s.PaymentDismiss)

	return s
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// AuthCallback is the identity provider's return path; it lands here once
// per successful external authentication with the issued token.
func (s *Server) AuthCallback(c echo.Context) error {
	ctx := c.Request().Context()

	token := c.QueryParam("token")
	if token == "" {
		s.log.Warn("auth_callback_missing_token")
		return c.JSON(http.StatusBadRequest, "token required")
	}

	if err := s.sessions.CompleteLogin(ctx, token); err != nil {
		if errors.Is(err, session.ErrEmptyToken) {
			return c.JSON(http.StatusBadRequest, "token required")
		}
		s.log.Error("auth_callback_failed", "error", err)
		return c.JSON(http.StatusBadGateway, "login could not be completed")
	}

	return c.HTML(http.StatusOK, "<p>Login complete. You can close this window.</p>")
}

// PaymentSession serves the parked widget invocation to the hosted page.
func (s *Server) PaymentSession(c echo.Context) error {
	inv, ok := s.widget.Current()
	if !ok {
		return c.JSON(http.StatusNotFound, "no checkout awaiting payment")
	}
	return c.JSON(http.StatusOK, inv)
}

// PaymentCallback receives the widget's signed success payload.
func (s *Server) PaymentCallback(c echo.Context) error {
	ctx := c.Request().Context()

	var payload checkout.CallbackPayload
	if err := c.Bind(&payload); err != nil {
		s.log.Warn("payment_callback_bad_body", "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if payload.GatewayOrderID == "" || payload.GatewayPaymentID == "" || payload.GatewaySignature == "" {
		return c.JSON(http.StatusBadRequest, "signed payment identifiers required")
	}

	if err := s.checkouts.HandleGatewayCallback(ctx, payload); err != nil {
		if errors.Is(err, checkout.ErrIllegalTransition) {
			return c.JSON(http.StatusConflict, "no checkout awaiting a callback")
		}
		s.widget.Clear()
		s.log.Error("payment_callback_verification_failed", "error", err)
		return c.JSON(http.StatusBadGateway, "payment could not be verified")
	}

	s.widget.Clear()
	return c.JSON(http.StatusOK, "payment verified")
}

// PaymentDismiss is the user closing the widget without paying.
func (s *Server) PaymentDismiss(c echo.Context) error {
	if err := s.checkouts.HandleDismiss(); err != nil {
		if errors.Is(err, checkout.ErrIllegalTransition) {
			return c.JSON(http.StatusConflict, "no checkout awaiting a callback")
		}
		s.log.Error("payment_dismiss_failed", "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	s.widget.Clear()
	return c.JSON(http.StatusOK, "checkout cancelled")
}
