package observability

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(metrics))
	router.HandleFunc("/api/v1/chapters/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	}).Methods("GET")

	for _, id := range []string{"a", "b", "c"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/chapters/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}

	count := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/chapters/{id}", "404"))
	assert.Equal(t, float64(3), count)
}

func TestMetrics_RecordAuthAttempt(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordAuthAttempt("password", "success")
	metrics.RecordAuthAttempt("password", "success")
	metrics.RecordAuthAttempt("google", "failure")

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.AuthAttemptsTotal.WithLabelValues("password", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AuthAttemptsTotal.WithLabelValues("google", "failure")))
}

func TestMetrics_RecordStorageOperation(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordStorageOperation("users.create", time.Now(), nil)
	metrics.RecordStorageOperation("users.create", time.Now(), errors.New("boom"))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("users.create", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("users.create", "error")))
}

func TestMetrics_RecordDBStats(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordDBStats(sql.DBStats{OpenConnections: 5, InUse: 2, Idle: 3, WaitCount: 7})

	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.DBConnectionsOpen))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.DBConnectionsInUse))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.DBConnectionsIdle))
	assert.Equal(t, float64(7), testutil.ToFloat64(metrics.DBConnectionsWaitCount))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var metrics *Metrics
	assert.NotPanics(t, func() {
		metrics.RecordAuthAttempt("password", "success")
		metrics.RecordStorageOperation("x", time.Now(), nil)
		metrics.RecordDBStats(sql.DBStats{})
	})
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.RecordAuthAttempt("password", "success")

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "elearn_auth_attempts_total")
}
