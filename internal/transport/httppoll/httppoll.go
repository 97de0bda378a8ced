// Package httppoll implements the HTTP-poll Transport Adapter: a
// long-lived loop that periodically requests events from a VTN's
// OpenADR2/Simple/EiEvent endpoint, hands the response to the Event
// Handler, and posts any reply back (spec.md §4.5, §6).
package httppoll

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "oadr2ven.io/ven/internal/pkg/errors"
	"oadr2ven.io/ven/internal/pkg/logger"
)

const (
	contentType  = "application/xml"
	userAgent    = "oadr2ven VEN"
	uriPath      = "OpenADR2/Simple/"
	eventPath    = "EiEvent"
)

// EventHandler is the subset of eventhandler.Handler this adapter drives.
type EventHandler interface {
	BuildRequestPayload() ([]byte, error)
	HandlePayload(ctx context.Context, raw []byte) ([]byte, error)
}

// SignalNotifier is notified after a payload has been processed and produced
// a reply, so the Event Controller can refresh ahead of its next scheduled
// tick. A payload that produces no reply does not notify.
type SignalNotifier interface {
	SignalUpdated()
}

// Config configures the HTTP-poll adapter.
type Config struct {
	VtnBaseURI     string
	PollInterval   time.Duration
	RequestTimeout time.Duration

	ClientCertFile string
	ClientKeyFile  string
	CABundleFile   string
}

// Adapter is the HTTP-poll Transport Adapter.
type Adapter struct {
	cfg      Config
	eventURI string
	handler  EventHandler
	notifier SignalNotifier
	client   *http.Client
}

// New constructs the adapter and its TLS-configured HTTP client.
func New(cfg Config, handler EventHandler, notifier SignalNotifier) (*Adapter, error) {
	if cfg.VtnBaseURI == "" {
		return nil, fmt.Errorf("httppoll: vtn base uri must not be empty")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 300 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}

	base := cfg.VtnBaseURI
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	eventURI := base + uriPath + eventPath

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
	}

	return &Adapter{
		cfg:      cfg,
		eventURI: eventURI,
		handler:  handler,
		notifier: notifier,
		client:   client,
	}, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.ClientCertFile == "" && cfg.CABundleFile == "" {
		return nil, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.ClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("httppoll: load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.CABundleFile != "" {
		pemBytes, err := os.ReadFile(cfg.CABundleFile)
		if err != nil {
			return nil, fmt.Errorf("httppoll: read CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBytes) {
			return nil, fmt.Errorf("httppoll: no certificates parsed from CA bundle %s", cfg.CABundleFile)
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// Run executes the poll loop until ctx is cancelled. A transport error on
// any iteration is logged; the loop continues at the next interval
// (spec.md §7 recovery policy).
func (a *Adapter) Run(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := a.queryVTN(ctx); err != nil {
			logger.Warn("poll iteration failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			logger.Info("poll loop exiting")
			return
		case <-ticker.C:
		}
	}
}

// queryVTN performs one request/handle/reply cycle.
func (a *Adapter) queryVTN(ctx context.Context) error {
	requestBody, err := a.handler.BuildRequestPayload()
	if err != nil {
		return fmt.Errorf("build requestEvent: %w", err)
	}

	respBody, err := a.post(ctx, a.eventURI, requestBody)
	if err != nil {
		return apperrors.ErrTransportError(err)
	}
	if len(respBody) == 0 {
		return nil
	}

	reply, err := a.handler.HandlePayload(ctx, respBody)
	if err != nil {
		logger.Warn("distributeEvent handling failed", zap.Error(err))
		return nil
	}
	if reply == nil {
		return nil
	}

	if a.notifier != nil {
		a.notifier.SignalUpdated()
	}

	if _, err := a.post(ctx, a.eventURI, reply); err != nil {
		return apperrors.ErrTransportError(fmt.Errorf("send createdEvent reply: %w", err))
	}
	return nil
}

func (a *Adapter) post(ctx context.Context, uri string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("vtn returned HTTP %d", resp.StatusCode)
	}

	return data, nil
}
