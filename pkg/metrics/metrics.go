package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics набор prometheus-метрик сервиса
// Все метрики регистрируются в собственном реестре, чтобы не конфликтовать при повторном создании
type Metrics struct {
	service  string
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	dbQueryDuration *prometheus.HistogramVec
	dbConnections   *prometheus.GaugeVec

	bookingsTotal *prometheus.CounterVec

	hubSubscribers *prometheus.GaugeVec
	hubEventsTotal *prometheus.CounterVec
}

// New создает и регистрирует метрики для сервиса
func New(serviceName string) *Metrics {
	m := &Metrics{
		service:  serviceName,
		registry: prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "route", "status"}),

		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "route"}),

		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"service", "operation"}),

		dbConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_connections",
			Help: "Database connection pool state",
		}, []string{"service", "state"}),

		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointments_booking_total",
			Help: "Appointment booking attempts by outcome",
		}, []string{"service", "outcome"}),

		hubSubscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "availability_subscribers",
			Help: "Number of live availability subscribers",
		}, []string{"service"}),

		hubEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "availability_events_total",
			Help: "Availability events fanned out to subscribers by result",
		}, []string{"service", "type", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dbQueryDuration,
		m.dbConnections,
		m.bookingsTotal,
		m.hubSubscribers,
		m.hubEventsTotal,
	)

	return m
}

// Handler возвращает HTTP handler для эндпоинта /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry возвращает реестр метрик (для тестов)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest фиксирует HTTP запрос
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(m.service, method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(m.service, method, route).Observe(duration.Seconds())
}

// ObserveDBQuery фиксирует длительность запроса к БД
func (m *Metrics) ObserveDBQuery(operation string, duration time.Duration) {
	m.dbQueryDuration.WithLabelValues(m.service, operation).Observe(duration.Seconds())
}

// SetDBStats обновляет метрики пула соединений
func (m *Metrics) SetDBStats(stats sql.DBStats) {
	m.dbConnections.WithLabelValues(m.service, "open").Set(float64(stats.OpenConnections))
	m.dbConnections.WithLabelValues(m.service, "in_use").Set(float64(stats.InUse))
	m.dbConnections.WithLabelValues(m.service, "idle").Set(float64(stats.Idle))
}

// IncBooking фиксирует результат попытки бронирования (created, conflict, not_available, error)
func (m *Metrics) IncBooking(outcome string) {
	m.bookingsTotal.WithLabelValues(m.service, outcome).Inc()
}

// SubscriberConnected увеличивает число подписчиков
func (m *Metrics) SubscriberConnected() {
	m.hubSubscribers.WithLabelValues(m.service).Inc()
}

// SubscriberDisconnected уменьшает число подписчиков
func (m *Metrics) SubscriberDisconnected() {
	m.hubSubscribers.WithLabelValues(m.service).Dec()
}

// EventDelivered фиксирует доставленное подписчику событие
func (m *Metrics) EventDelivered(eventType string) {
	m.hubEventsTotal.WithLabelValues(m.service, eventType, "delivered").Inc()
}

// EventDropped фиксирует событие, которое не удалось записать (подписчик отключён)
func (m *Metrics) EventDropped(eventType string) {
	m.hubEventsTotal.WithLabelValues(m.service, eventType, "dropped").Inc()
}
