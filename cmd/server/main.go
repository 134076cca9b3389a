package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dreamconnectxr/Headphone-Party/internal/broadcast"
	"github.com/Dreamconnectxr/Headphone-Party/internal/config"
	"github.com/Dreamconnectxr/Headphone-Party/internal/httpapi"
	"github.com/Dreamconnectxr/Headphone-Party/internal/party"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	store := party.NewStore(clock)

	// New subscribers get the latest snapshot as their first event.
	hub := broadcast.New(ctx, func() broadcast.Event {
		return broadcast.Event{Name: broadcast.EventState, Data: store.Snapshot().Payload()}
	}, cfg.KeepAliveInterval, clock, logger)

	gw := party.NewGateway(store, hub, logger)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: httpapi.SetupRoutes(gw, cfg.Name, logger),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("control server listening", zap.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		// Close subscriber channels first so the streaming handlers
		// return, then drain the HTTP server.
		hub.Inbox() <- broadcast.Shutdown{}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("shut down cleanly")
}
