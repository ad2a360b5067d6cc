// Package metrics collects and exposes Prometheus metrics for the
// dashboard backend.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and records the backend's counters. A nil
// Collector is a no-op, so wiring stays optional in tests.
type Collector struct {
	logins        *prometheus.CounterVec
	verifications *prometheus.CounterVec
	sweepDeleted  prometheus.Counter
	upstream      *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_logins_total",
			Help: "OAuth logins by result.",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_token_verifications_total",
			Help: "Session token verifications by result.",
		}, []string{"result"}),
		sweepDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_vault_sweep_deleted_total",
			Help: "Expired credential rows removed by the periodic sweep.",
		}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_upstream_requests_total",
			Help: "Requests to the identity provider and bot API by target and status.",
		}, []string{"target", "status"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_http_status_total",
			Help: "Responses served by status code.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.logins,
		c.verifications,
		c.sweepDeleted,
		c.upstream,
		c.httpStatus,
	)

	return c
}

func (c *Collector) RecordLogin(result string) {
	if c == nil {
		return
	}
	c.logins.WithLabelValues(result).Inc()
}

func (c *Collector) RecordVerification(result string) {
	if c == nil {
		return
	}
	c.verifications.WithLabelValues(result).Inc()
}

func (c *Collector) RecordSweepDeleted(deleted int64) {
	if c == nil {
		return
	}
	c.sweepDeleted.Add(float64(deleted))
}

func (c *Collector) RecordUpstream(target string, statusCode int) {
	if c == nil {
		return
	}
	c.upstream.WithLabelValues(target, strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	if c == nil {
		return
	}
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler exposes the registry for scraping.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
