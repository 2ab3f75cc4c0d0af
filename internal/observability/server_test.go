// File: internal/observability/server_test.go
package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatusRouter_Healthz(t *testing.T) {
	tests := []struct {
		name     string
		state    string
		healthy  bool
		wantCode int
	}{
		{"Polling", "polling", true, http.StatusOK},
		{"Fatal", "fatal", false, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewStatusRouter(prometheus.NewRegistry(), func() (string, bool) {
				return tt.state, tt.healthy
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, `{"state":"`+tt.state+`"}`, rec.Body.String())
		})
	}
}

func TestStatusRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.PollCycles.Inc()

	router := NewStatusRouter(reg, func() (string, bool) { return "polling", true })
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "grabber_poll_cycles_total 1")
}

func TestStatusServer_StopsOnCancel(t *testing.T) {
	srv := NewStatusServer("127.0.0.1:0", http.NotFoundHandler(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("status server did not stop after cancellation")
	}
}
