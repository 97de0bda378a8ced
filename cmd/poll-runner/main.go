// Command poll-runner runs the VEN with the HTTP-poll Transport Adapter:
// it periodically requests events from a VTN rather than waiting for a
// push (spec.md §4.5).
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
	"oadr2ven.io/ven/internal/transport/httppoll"
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
	if cfg.HTTPPoll.VtnBaseURI == "" {
		return fmt.Errorf("http_poll.vtn_base_uri must be set for poll-runner")
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting VEN (http-poll)",
		zap.String("ven_id", cfg.VEN.VenID),
		zap.String("vtn_base_uri", cfg.HTTPPoll.VtnBaseURI),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer application.Shutdown()

	adapter, err := httppoll.New(httppoll.Config{
		VtnBaseURI:     cfg.HTTPPoll.VtnBaseURI,
		PollInterval:   cfg.HTTPPoll.PollInterval,
		RequestTimeout: cfg.HTTPPoll.RequestTimeout,
		ClientCertFile: cfg.HTTPPoll.ClientCertFile,
		ClientKeyFile:  cfg.HTTPPoll.ClientKeyFile,
		CABundleFile:   cfg.HTTPPoll.CABundleFile,
	}, application.Handler, application.Controller)
	if err != nil {
		return fmt.Errorf("init http-poll adapter: %w", err)
	}

	if err := application.StartController(ctx); err != nil {
		return fmt.Errorf("start control loop: %w", err)
	}
	if err := application.Pools.SubmitDetached("poll", func(ctx context.Context) {
		adapter.Run(ctx)
	}); err != nil {
		return fmt.Errorf("start poll loop: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")
	return nil
}
