// Package api provides Prometheus metrics for hierasock sockets.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VanDung-dev/hierasock/sock"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Metrics counts socket events. It implements sock.Observer.
type Metrics struct {
	// Socket metrics
	SocketsOpened *prometheus.CounterVec
	SocketsClosed *prometheus.CounterVec
	SocketsOpen   prometheus.Gauge

	// Endpoint metrics
	BindsTotal    *prometheus.CounterVec
	BindAttempts  prometheus.Histogram
	ConnectsTotal *prometheus.CounterVec

	// Message metrics
	MessagesSent     *prometheus.CounterVec
	MessagesReceived *prometheus.CounterVec
	FramesPerMessage prometheus.Histogram
}

var _ sock.Observer = (*Metrics)(nil)

// NewMetrics creates metrics registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates metrics registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SocketsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sockets_opened_total",
			Help:      "Total number of sockets created by type",
		}, []string{"type"}),
		SocketsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sockets_closed_total",
			Help:      "Total number of sockets destroyed by type",
		}, []string{"type"}),
		SocketsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sockets_open",
			Help:      "Current number of open sockets",
		}),

		BindsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "binds_total",
			Help:      "Total bind calls by status",
		}, []string{"status"}),
		BindAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bind_attempts",
			Help:      "Ports tried per bind",
			Buckets:   []float64{1, 2, 5, 10, 50, 100, 1000, 16384},
		}),
		ConnectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Total connect calls by status",
		}, []string{"status"}),

		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total messages sent by status",
		}, []string{"status"}),
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total messages received by status",
		}, []string{"status"}),
		FramesPerMessage: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frames_per_message",
			Help:      "Number of frames per message sent or received",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
	}
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusOK
}

// SocketOpened records a created socket.
func (m *Metrics) SocketOpened(t sock.Type) {
	m.SocketsOpened.WithLabelValues(t.String()).Inc()
	m.SocketsOpen.Inc()
}

// SocketClosed records a destroyed socket.
func (m *Metrics) SocketClosed(t sock.Type) {
	m.SocketsClosed.WithLabelValues(t.String()).Inc()
	m.SocketsOpen.Dec()
}

// BindCompleted records a bind and the number of ports it tried.
func (m *Metrics) BindCompleted(port, attempts int, err error) {
	m.BindsTotal.WithLabelValues(status(err)).Inc()
	if attempts > 0 {
		m.BindAttempts.Observe(float64(attempts))
	}
}

// ConnectCompleted records a connect.
func (m *Metrics) ConnectCompleted(err error) {
	m.ConnectsTotal.WithLabelValues(status(err)).Inc()
}

// MessageSent records a send.
func (m *Metrics) MessageSent(frames int, err error) {
	m.MessagesSent.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.FramesPerMessage.Observe(float64(frames))
	}
}

// MessageReceived records a receive.
func (m *Metrics) MessageReceived(frames int, err error) {
	m.MessagesReceived.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.FramesPerMessage.Observe(float64(frames))
	}
}

// MetricsServer runs an HTTP server exposing /metrics endpoint.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a metrics server for the default registry.
func NewMetricsServer(addr string) *MetricsServer {
	return NewMetricsServerFor(addr, prometheus.DefaultGatherer)
}

// NewMetricsServerFor creates a metrics server exposing gatherer.
func NewMetricsServerFor(addr string, gatherer prometheus.Gatherer) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Handler returns the server's HTTP handler.
func (s *MetricsServer) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the metrics server (blocking).
func (s *MetricsServer) Start() error {
	return s.server.ListenAndServe()
}

// StartAsync starts the metrics server in a goroutine.
func (s *MetricsServer) StartAsync() {
	go func() {
		_ = s.server.ListenAndServe()
	}()
}

// Stop gracefully stops the metrics server.
func (s *MetricsServer) Stop() error {
	return s.server.Close()
}
