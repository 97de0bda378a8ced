// Package xmpppush implements the XMPP-push Transport Adapter: a
// long-lived XMPP session that receives oadrDistributeEvent IQ stanzas
// pushed by a VTN and replies in-band, instead of polling (spec.md §4.5,
// §6). Unlike httppoll, this adapter never initiates requests; it only
// reacts to pushes.
package xmpppush

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"mellium.im/sasl"
	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/dial"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/mux"
	"mellium.im/xmpp/stanza"

	apperrors "oadr2ven.io/ven/internal/pkg/errors"
	"oadr2ven.io/ven/internal/pkg/logger"
)

// EventHandler is the subset of eventhandler.Handler this adapter drives.
type EventHandler interface {
	HandlePayload(ctx context.Context, raw []byte) ([]byte, error)
}

// SignalNotifier is notified after a payload has been processed and produced
// a reply, so the Event Controller can refresh ahead of its next scheduled
// tick. A payload that produces no reply does not notify.
type SignalNotifier interface {
	SignalUpdated()
}

// Config configures the XMPP-push adapter.
type Config struct {
	JID      string
	Password string

	ServerHost        string
	ServerPort        int
	KeepaliveInterval time.Duration

	CABundleFile string
}

// Adapter is the XMPP-push Transport Adapter.
type Adapter struct {
	cfg      Config
	self     jid.JID
	handler  EventHandler
	notifier SignalNotifier
}

// New parses and validates the JID; the XMPP session itself is not
// established until Run is called.
func New(cfg Config, handler EventHandler, notifier SignalNotifier) (*Adapter, error) {
	self, err := jid.Parse(cfg.JID)
	if err != nil {
		return nil, fmt.Errorf("xmpppush: invalid JID %q: %w", cfg.JID, err)
	}
	if cfg.ServerPort == 0 {
		cfg.ServerPort = 5222
	}
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = 60 * time.Second
	}

	return &Adapter{cfg: cfg, self: self, handler: handler, notifier: notifier}, nil
}

// Run dials the XMPP server, negotiates a session, and serves incoming
// stanzas until ctx is cancelled or the session closes. On failure, the
// caller is responsible for retry/backoff (spec.md §7: transport errors
// are logged, not fatal).
func (a *Adapter) Run(ctx context.Context) error {
	tlsConfig, err := a.buildTLSConfig()
	if err != nil {
		return apperrors.ErrTransportError(err)
	}

	conn, err := dial.Client(ctx, "tcp", a.self)
	if err != nil {
		return apperrors.ErrTransportError(fmt.Errorf("dial xmpp server: %w", err))
	}

	session, err := xmpp.NewSession(
		ctx, a.self.Domain(), a.self, conn, 0,
		xmpp.NewNegotiator(xmpp.StreamConfig{
			Features: []xmpp.StreamFeature{
				xmpp.StartTLS(tlsConfig),
				xmpp.SASL("", a.cfg.Password, sasl.ScramSha1, sasl.Plain),
				xmpp.BindResource(),
			},
		}),
	)
	if err != nil {
		return apperrors.ErrTransportError(fmt.Errorf("negotiate xmpp session: %w", err))
	}
	defer session.Close()

	m := mux.New(
		stanza.NSClient,
		mux.IQ(stanza.SetIQ, xml.Name{Local: "oadrDistributeEvent"}, a),
	)

	keepaliveCtx, stopKeepalive := context.WithCancel(ctx)
	defer stopKeepalive()
	go a.keepalive(keepaliveCtx, session)

	logger.Info("xmpp session established", zap.String("jid", a.self.String()))
	return session.Serve(m)
}

// HandleIQ implements mux.IQHandler: it is invoked once per pushed
// oadrDistributeEvent IQ. The raw event bytes are read from the token
// stream, handed to the Event Handler, and any createdEvent reply is
// written back onto the same stream as the IQ response.
func (a *Adapter) HandleIQ(iq stanza.IQ, t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
	raw, err := readPayload(t, start)
	if err != nil {
		logger.Warn("xmpp payload decode failed", zap.Error(err))
		return nil
	}

	reply, err := a.handler.HandlePayload(context.Background(), raw)
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

	result := iq.Result(xml.NewDecoder(bytes.NewReader(reply)))
	_, err = xmlstream.Copy(t, result)
	return err
}

// readPayload drains the stanza's child element, starting from the
// already-consumed start token, back into raw XML bytes for the Event
// Handler.
func readPayload(t xmlstream.TokenReadEncoder, start *xml.StartElement) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := enc.EncodeToken(*start); err != nil {
		return nil, fmt.Errorf("re-encode start element: %w", err)
	}

	dec := xml.NewTokenDecoder(t)
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read stanza body: %w", err)
		}
		if err := enc.EncodeToken(tok); err != nil {
			return nil, fmt.Errorf("re-encode token: %w", err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("flush encoder: %w", err)
	}
	return buf.Bytes(), nil
}

func (a *Adapter) keepalive(ctx context.Context, session *xmpp.Session) {
	ticker := time.NewTicker(a.cfg.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := session.Conn().Write([]byte(" ")); err != nil {
				logger.Warn("xmpp whitespace keepalive failed", zap.Error(err))
			}
		}
	}
}

func (a *Adapter) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12, ServerName: a.self.Domain().String()}
	if a.cfg.CABundleFile == "" {
		return tlsConfig, nil
	}
	pemBytes, err := os.ReadFile(a.cfg.CABundleFile)
	if err != nil {
		return nil, fmt.Errorf("read CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, fmt.Errorf("no certificates parsed from CA bundle %s", a.cfg.CABundleFile)
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}
