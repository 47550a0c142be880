package api

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	refreshSuccess  = "success"
	refreshRejected = "rejected"
	refreshMissing  = "missing_refresh_token"
)

type metrics struct {
	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appo",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Outbound API requests by method and HTTP status (0 when no response).",
		}, []string{"method", "code"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appo",
			Subsystem: "client",
			Name:      "token_refreshes_total",
			Help:      "Token renewal exchanges by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		m.requests = register(reg, m.requests)
		m.refreshes = register(reg, m.refreshes)
	}
	return m
}

// register returns the already registered collector when two clients share a registry.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}
