package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/102326/PyLab/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionOpened()
		m.SessionClosed("client")
		m.SubscribeFailed()
		m.Relayed()
		m.Published(nil)
		m.DirectSend(true)
	})
}

func TestSessionCounters(t *testing.T) {
	m := New(config.MetricsConfig{Namespace: "t"})
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed("replaced")
	m.Relayed()
	m.Published(nil)
	m.Published(errors.New("x"))
	m.DirectSend(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.disconnectsTotal.WithLabelValues("replaced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.relayedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishedTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.directTotal.WithLabelValues("false")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(config.MetricsConfig{Namespace: "t"})
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `t_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}
