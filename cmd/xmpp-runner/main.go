// Command xmpp-runner runs the VEN with the XMPP-push Transport Adapter:
// it maintains a long-lived XMPP session and reacts to events pushed by
// the VTN instead of polling (spec.md §4.5).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"oadr2ven.io/ven/internal/app"
	"oadr2ven.io/ven/internal/config"
	"oadr2ven.io/ven/internal/pkg/logger"
	"oadr2ven.io/ven/internal/transport/xmpppush"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.XMPP.JID == "" {
		return fmt.Errorf("xmpp.jid must be set for xmpp-runner")
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting VEN (xmpp-push)",
		zap.String("ven_id", cfg.VEN.VenID),
		zap.String("jid", cfg.XMPP.JID),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer application.Shutdown()

	adapter, err := xmpppush.New(xmpppush.Config{
		JID:               cfg.XMPP.JID,
		Password:          cfg.XMPP.Password,
		ServerHost:        cfg.XMPP.ServerHost,
		ServerPort:        cfg.XMPP.ServerPort,
		KeepaliveInterval: cfg.XMPP.KeepaliveInterval,
		CABundleFile:      cfg.XMPP.CABundleFile,
	}, application.Handler, application.Controller)
	if err != nil {
		return fmt.Errorf("init xmpp-push adapter: %w", err)
	}

	if err := application.StartController(ctx); err != nil {
		return fmt.Errorf("start control loop: %w", err)
	}
	if err := application.Pools.SubmitDetached("poll", func(ctx context.Context) {
		if err := adapter.Run(ctx); err != nil {
			logger.Error("xmpp session terminated", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("start xmpp session: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")
	return nil
}
