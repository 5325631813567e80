package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())

	m.Signup()
	m.Signup()
	m.Login(LoginOK)
	m.Login(LoginRejected)
	m.Login(LoginRejected)
	m.Export(3)

	require.Equal(t, 2.0, testutil.ToFloat64(m.signups))
	require.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues(LoginOK)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues(LoginRejected)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.exports))
}

func TestMetrics_ObserveRequest_DefaultStatus(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	m.ObserveRequest(http.MethodGet, "/users/", 0, time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/users/", http.StatusFound, time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/users/", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/users/", "302")))
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.Signup()
		m.Login(LoginError)
		m.Export(10)
		m.ObserveRequest(http.MethodPost, "/login/", 500, time.Second)
	})
}
