// Package metrics exposes monitor activity as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/sigevent/internal/monitor"
	"github.com/roach88/sigevent/internal/simtime"
)

const namespace = "sigevent"

// Recorder counts monitor operations. It implements monitor.Observer and
// keeps its collectors on a private registry so that several sessions in one
// process do not collide.
type Recorder struct {
	registry *prometheus.Registry

	MonitorsCreated prometheus.Counter
	SetupErrors     *prometheus.CounterVec
	Notifications   prometheus.Counter
	Queries         *prometheus.CounterVec
	Released        prometheus.Counter
	LiveMonitors    prometheus.Gauge
}

var _ monitor.Observer = (*Recorder)(nil)

// NewRecorder creates and registers all collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		MonitorsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitors_created_total",
			Help:      "Total number of event monitors created",
		}),
		SetupErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "setup_errors_total",
			Help:      "Total number of attribute setup errors by code",
		}, []string{"code"}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "value_changes_total",
			Help:      "Total number of value-change notifications delivered to monitors",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of attribute queries by result",
		}, []string{"result"}),
		Released: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitors_released_total",
			Help:      "Total number of monitors released at end of simulation",
		}),
		LiveMonitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_monitors",
			Help:      "Number of monitors currently owned by the registry",
		}),
	}

	r.registry.MustRegister(
		r.MonitorsCreated,
		r.SetupErrors,
		r.Notifications,
		r.Queries,
		r.Released,
		r.LiveMonitors,
	)
	return r
}

// Registry returns the Prometheus registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Registered implements monitor.Observer.
func (r *Recorder) Registered(_ monitor.CallSite, _ string, h monitor.Handle, err error) {
	if h.Valid() {
		r.MonitorsCreated.Inc()
		r.LiveMonitors.Inc()
	}
	var se *monitor.SetupError
	if errors.As(err, &se) {
		r.SetupErrors.WithLabelValues(string(se.Code)).Inc()
	}
}

// Notified implements monitor.Observer.
func (r *Recorder) Notified(monitor.Handle, simtime.Timestamp) {
	r.Notifications.Inc()
}

// Queried implements monitor.Observer.
func (r *Recorder) Queried(_ monitor.Handle, _ simtime.Timestamp, result bool) {
	r.Queries.WithLabelValues(fmt.Sprintf("%t", result)).Inc()
}

// TornDown implements monitor.Observer.
func (r *Recorder) TornDown(released int) {
	r.Released.Add(float64(released))
	r.LiveMonitors.Set(0)
}

// WriteText writes all metrics in the Prometheus text exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
