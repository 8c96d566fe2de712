package metrics_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stratum/internal/adapters/metrics"
	"go.trai.ch/stratum/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newServer(t *testing.T) (*metrics.Server, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	reg := metrics.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stratum_test_batches_total",
		Help: "Batches seen by the test.",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	return metrics.NewServer("127.0.0.1:0", reg, logger), logger
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequestWithContext(t.Context(), http.MethodGet, path, http.NoBody))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newServer(t)

	code, body := get(t, srv.Router(), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok\n", body)
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newServer(t)

	code, body := get(t, srv.Router(), "/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "stratum_test_batches_total 3")
	assert.Contains(t, body, "go_goroutines")
}

func TestServer_UnknownRoute(t *testing.T) {
	srv, _ := newServer(t)

	code, _ := get(t, srv.Router(), "/v1/anything")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_ServeUntilCanceled(t *testing.T) {
	srv, logger := newServer(t)
	logger.EXPECT().Info(gomock.Any())

	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://"+ln.Addr().String()+"/healthz", http.NoBody)
		if err != nil {
			return false
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
