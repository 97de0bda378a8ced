package httppoll

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	requestPayload []byte
	reply          []byte
	handleErr      error
	handled        atomic.Int32
}

func (s *stubHandler) BuildRequestPayload() ([]byte, error) {
	return s.requestPayload, nil
}

func (s *stubHandler) HandlePayload(_ context.Context, _ []byte) ([]byte, error) {
	s.handled.Add(1)
	return s.reply, s.handleErr
}

type stubNotifier struct {
	notified atomic.Int32
}

func (s *stubNotifier) SignalUpdated() { s.notified.Add(1) }

func TestAdapter_QueryVTN_SendsReplyAndNotifies(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		w.Header().Set("Content-Type", "application/xml")
		if n == 1 {
			w.Write([]byte(`<oadrDistributeEvent/>`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := &stubHandler{requestPayload: []byte(`<oadrRequestEvent/>`), reply: []byte(`<oadrCreatedEvent/>`)}
	notifier := &stubNotifier{}

	adapter, err := New(Config{VtnBaseURI: srv.URL, RequestTimeout: 2 * time.Second}, h, notifier)
	require.NoError(t, err)

	err = adapter.queryVTN(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, int32(1), h.handled.Load())
	assert.Equal(t, int32(1), notifier.notified.Load())
}

func TestAdapter_QueryVTN_NoReply_NoSecondPost(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<oadrDistributeEvent/>`))
	}))
	defer srv.Close()

	h := &stubHandler{requestPayload: []byte(`<oadrRequestEvent/>`), reply: nil}
	notifier := &stubNotifier{}

	adapter, err := New(Config{VtnBaseURI: srv.URL, RequestTimeout: 2 * time.Second}, h, notifier)
	require.NoError(t, err)

	err = adapter.queryVTN(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, int32(0), notifier.notified.Load())
}

func TestAdapter_QueryVTN_HTTPErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := &stubHandler{requestPayload: []byte(`<oadrRequestEvent/>`)}
	adapter, err := New(Config{VtnBaseURI: srv.URL, RequestTimeout: 2 * time.Second}, h, nil)
	require.NoError(t, err)

	err = adapter.queryVTN(context.Background())
	require.Error(t, err)
}

func TestNew_RejectsEmptyBaseURI(t *testing.T) {
	_, err := New(Config{}, &stubHandler{}, nil)
	assert.Error(t, err)
}

func TestBuildTLSConfig_AbsentWhenUnconfigured(t *testing.T) {
	cfg, err := buildTLSConfig(Config{})
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestBuildTLSConfig_MissingCABundleFile(t *testing.T) {
	_, err := buildTLSConfig(Config{CABundleFile: "/nonexistent/ca.pem"})
	assert.Error(t, err)
}
