package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/iraxa/shopclient/internal/api"
	"github.com/iraxa/shopclient/internal/callback"
	"github.com/iraxa/shopclient/internal/cart"
	"github.com/iraxa/shopclient/internal/checkout"
	"github.com/iraxa/shopclient/internal/config"
	"github.com/iraxa/shopclient/internal/eventbus"
	"github.com/iraxa/shopclient/internal/logging"
	"github.com/iraxa/shopclient/internal/session"
	"github.com/iraxa/shopclient/internal/sessionstore"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.APIBaseURL, "API_BASE_URL")

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := sessionstore.Open(initCtx, cfg.SessionDBPath)
	cancel()
	if err != nil {
		log.Fatalf("session store init error: %v", err)
	}

	bus := eventbus.New(logging.WithComponent(logger, "eventbus"))

	manager := session.NewManager(store, bus, logging.WithComponent(logger, "session"))

	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, logging.WithComponent(logger, "api"))
	client.Tokens = manager
	client.OnUnauthenticated = func() {
		manager.HandleUnauthenticated(context.Background())
	}
	manager.Profiles = client

	synchronizer := cart.New(client, manager, bus, logging.WithComponent(logger, "cart"))
	defer synchronizer.Close()

	widget := callback.NewWidgetGate(logging.WithComponent(logger, "widget"))
	orchestrator := checkout.New(client, synchronizer, widget, cfg.ShippingFee, logging.WithComponent(logger, "checkout"))

	srv := callback.New(manager, orchestrator, widget, logging.WithComponent(logger, "callback"))

	go func() {
		logger.Info("callback server starting", "addr", cfg.CallbackAddr)
		if err := srv.Start(cfg.CallbackAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("callback server start: %v", err)
		}
	}()

	// Restore settles the session before anything touches the cart; the
	// synchronizer picks up the acquired session through the bus.
	manager.Restore(context.Background())

	logger.Info("sign-in entry point", "url", client.LoginURL(cfg.CallbackURL+"/auth/callback"))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("callback server shutdown", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("session store close", "error", err)
	}

	logger.Info("stopped")
}
