// metrics содержит метрики Prometheus для user-manager.
//
// Все методы безопасны для nil-получателя: сервис и мидлвары
// работают и без метрик (например, в тестах).
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "user_manager"

// Результаты входа для метки result.
const (
	LoginOK       = "ok"
	LoginRejected = "rejected"
	LoginError    = "error"
)

// Metrics — набор счётчиков и гистограмм сервиса.
type Metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	signups    prometheus.Counter
	logins     *prometheus.CounterVec
	exports    prometheus.Counter
	exportRows prometheus.Histogram
}

// New регистрирует метрики в reg. nil означает prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	f := promauto.With(reg)

	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		signups: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signups_total",
			Help:      "Successful signups.",
		}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		exports: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "csv_exports_total",
			Help:      "Completed CSV exports.",
		}),
		exportRows: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "csv_export_rows",
			Help:      "Rows per CSV export.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

// Signup отмечает успешную регистрацию.
func (m *Metrics) Signup() {
	if m == nil {
		return
	}

	m.signups.Inc()
}

// Login отмечает попытку входа с результатом result.
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}

	m.logins.WithLabelValues(result).Inc()
}

// Export отмечает завершённую выгрузку из rows строк.
func (m *Metrics) Export(rows int) {
	if m == nil {
		return
	}

	m.exports.Inc()
	m.exportRows.Observe(float64(rows))
}

// ObserveRequest фиксирует завершённый HTTP-запрос.
// route — шаблон маршрута (а не сырой путь), чтобы не раздувать кардинальность.
func (m *Metrics) ObserveRequest(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}

	if status == 0 {
		status = http.StatusOK
	}

	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(dur.Seconds())
}
