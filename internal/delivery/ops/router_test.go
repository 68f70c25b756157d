package ops

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/metrics"
)

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := metrics.New(reg)
	recorder.RecordCycle("daily_market", "success")

	healthy := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		path     string
		checks   map[string]Check
		wantCode int
		wantBody string
	}{
		{name: "liveness", path: "/healthz", wantCode: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "ready", path: "/readyz", checks: map[string]Check{"postgres": healthy}, wantCode: http.StatusOK, wantBody: `"ready":true`},
		{name: "not ready", path: "/readyz", checks: map[string]Check{"postgres": healthy, "redis": down}, wantCode: http.StatusServiceUnavailable, wantBody: "connection refused"},
		{name: "metrics", path: "/metrics", wantCode: http.StatusOK, wantBody: "marketpulse_cycles_total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewRouter(reg, tt.checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
