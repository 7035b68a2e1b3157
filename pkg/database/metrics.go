package database

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Metrics exports MongoDB driver command and connection pool activity as
// Prometheus metrics. It is fed by the driver's CommandMonitor and PoolMonitor
// hooks and implements prometheus.Collector so it can be registered once.
type Metrics struct {
	service string

	commandDuration *prometheus.HistogramVec
	commandsTotal   *prometheus.CounterVec
	checkedOut      prometheus.Gauge
	openConns       prometheus.Gauge
	checkoutFailed  prometheus.Counter
}

// NewMetrics creates an unregistered metrics collector for the given service.
func NewMetrics(service string) *Metrics {
	constLabels := prometheus.Labels{"service": service}
	return &Metrics{
		service: service,
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "mongodb_command_duration_seconds",
			Help:        "Duration of MongoDB commands in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"command", "outcome"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "mongodb_commands_total",
			Help:        "Total number of MongoDB commands by outcome",
			ConstLabels: constLabels,
		}, []string{"command", "outcome"}),
		checkedOut: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mongodb_pool_checked_out_connections",
			Help:        "Number of connections currently checked out of the pool",
			ConstLabels: constLabels,
		}),
		openConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mongodb_pool_open_connections",
			Help:        "Number of open connections in the pool",
			ConstLabels: constLabels,
		}),
		checkoutFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mongodb_pool_checkout_failed_total",
			Help:        "Total number of failed connection checkouts",
			ConstLabels: constLabels,
		}),
	}
}

// Describe sends the descriptors of all metrics to the provided channel.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.commandDuration.Describe(ch)
	m.commandsTotal.Describe(ch)
	m.checkedOut.Describe(ch)
	m.openConns.Describe(ch)
	m.checkoutFailed.Describe(ch)
}

// Collect sends the current metric values to the provided channel.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.commandDuration.Collect(ch)
	m.commandsTotal.Collect(ch)
	m.checkedOut.Collect(ch)
	m.openConns.Collect(ch)
	m.checkoutFailed.Collect(ch)
}

// CommandMonitor returns a driver command monitor that records durations and
// outcomes per command name.
func (m *Metrics) CommandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			m.observeCommand(e.CommandName, "success", e.Duration.Seconds())
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			m.observeCommand(e.CommandName, "failure", e.Duration.Seconds())
		},
	}
}

func (m *Metrics) observeCommand(name, outcome string, seconds float64) {
	m.commandDuration.WithLabelValues(name, outcome).Observe(seconds)
	m.commandsTotal.WithLabelValues(name, outcome).Inc()
}

// PoolMonitor returns a driver pool monitor that tracks open and checked-out
// connections.
func (m *Metrics) PoolMonitor() *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(e *event.PoolEvent) {
			switch e.Type {
			case event.ConnectionCreated:
				m.openConns.Inc()
			case event.ConnectionClosed:
				m.openConns.Dec()
			case event.GetSucceeded:
				m.checkedOut.Inc()
			case event.ConnectionReturned:
				m.checkedOut.Dec()
			case event.GetFailed:
				m.checkoutFailed.Inc()
			}
		},
	}
}

// ClientOptions returns client options that attach both monitors.
func (m *Metrics) ClientOptions() *options.ClientOptions {
	return options.Client().
		SetMonitor(m.CommandMonitor()).
		SetPoolMonitor(m.PoolMonitor())
}

// RegisterMetrics creates a Metrics collector for service and registers it
// with reg.
func RegisterMetrics(reg prometheus.Registerer, service string) (*Metrics, error) {
	m := NewMetrics(service)
	if err := reg.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}
