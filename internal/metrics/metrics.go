// Package metrics holds the prometheus collectors of the visitor log.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "visitorlog"

// Metrics groups the service collectors.
type Metrics struct {
	SignIns   prometheus.Counter
	SignOuts  prometheus.Counter
	Logins    *prometheus.CounterVec
	Exports   *prometheus.CounterVec
	Offloads  *prometheus.CounterVec
	HTTPTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignIns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signins_total",
			Help:      "Visitors signed in at the kiosk.",
		}),
		SignOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signouts_total",
			Help:      "Visitors signed out from the dashboard.",
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Admin login attempts by result.",
		}, []string{"result"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Visitor log exports by format.",
		}, []string{"format"}),
		Offloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photo_offloads_total",
			Help:      "Visitor photo uploads to the CDN by result.",
		}, []string{"result"}),
		HTTPTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		}, []string{"route", "code"}),
	}
	reg.MustRegister(m.SignIns, m.SignOuts, m.Logins, m.Exports, m.Offloads, m.HTTPTotal)
	return m
}

// RegisterCheckedIn exposes the current checked-in count, read on scrape.
func RegisterCheckedIn(reg prometheus.Registerer, count func() float64) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "checked_in",
		Help:      "Visitors currently checked in.",
	}, count))
}
