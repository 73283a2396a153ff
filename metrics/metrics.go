// Package metrics exposes session and request metrics to Prometheus.
//
//	m := metrics.New("hyperion")
//	a := app.New(app.WithSessionOptions(session.WithObserver(m)))
//	_ = m.Register(prometheus.DefaultRegisterer, a.Store())
//	a.Use(m.Middleware())
//	a.HandleHTTP(http.MethodGet, "/metrics", promhttp.Handler())
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/feldspaten/hyperion/app"
	"github.com/feldspaten/hyperion/ctx"
	"github.com/feldspaten/hyperion/session"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements session.Observer and records per-request metrics.
type Metrics struct {
	ns       string
	created  prometheus.Counter
	evicted  prometheus.Counter
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ session.Observer = (*Metrics)(nil)

// New creates unregistered metrics under namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		ns: namespace,
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Sessions created by the store.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "evicted_total",
			Help:      "Sessions removed by expiry or explicit close.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Dispatched requests by method and status; \"error\" when a handler failed before responding.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time spent in dispatcher middleware and handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func (m *Metrics) SessionCreated()       { m.created.Inc() }
func (m *Metrics) SessionsEvicted(n int) { m.evicted.Add(float64(n)) }

// Register registers all metrics with reg, plus gauges reading the live and
// logged-in session counts from st at scrape time.
func (m *Metrics) Register(reg prometheus.Registerer, st *session.Store) error {
	cs := []prometheus.Collector{m.created, m.evicted, m.requests, m.duration}
	if st != nil {
		cs = append(cs, newSessionCollector(m.ns, st))
	}
	var errs []error
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Middleware counts requests and observes their duration.
func (m *Metrics) Middleware() app.Middleware {
	return func(next app.Handler) app.Handler {
		return func(r *ctx.Request) error {
			start := time.Now()
			err := next(r)
			label := "error"
			if err == nil || r.WroteHeader() {
				status := r.StatusCode()
				if status == 0 {
					status = http.StatusOK
				}
				label = strconv.Itoa(status)
			}
			m.requests.WithLabelValues(r.Method(), label).Inc()
			m.duration.WithLabelValues(r.Method()).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

type sessionCollector struct {
	store    *session.Store
	active   *prometheus.Desc
	loggedIn *prometheus.Desc
}

func newSessionCollector(namespace string, st *session.Store) *sessionCollector {
	return &sessionCollector{
		store:    st,
		active:   prometheus.NewDesc(prometheus.BuildFQName(namespace, "sessions", "active"), "Live sessions.", nil, nil),
		loggedIn: prometheus.NewDesc(prometheus.BuildFQName(namespace, "sessions", "logged_in"), "Live sessions with a user attached.", nil, nil),
	}
}

func (c *sessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.loggedIn
}

func (c *sessionCollector) Collect(ch chan<- prometheus.Metric) {
	all := c.store.All()
	var in int
	for _, s := range all {
		if s.IsLoggedIn() {
			in++
		}
	}
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(len(all)))
	ch <- prometheus.MustNewConstMetric(c.loggedIn, prometheus.GaugeValue, float64(in))
}
