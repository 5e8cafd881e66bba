package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	validationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamflo_validations_total",
		Help: "Graphs validated through the HTTP API.",
	})

	markersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamflo_markers_total",
		Help: "Markers produced by graph validation, by severity.",
	}, []string{"severity"})

	linkChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamflo_link_checks_total",
		Help: "Link candidates checked, by result (valid|invalid).",
	}, []string{"result"})
)

func recordMarkers(n int, severity string) {
	if n > 0 {
		markersTotal.WithLabelValues(severity).Add(float64(n))
	}
}

func recordLinkCheck(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	linkChecksTotal.WithLabelValues(result).Inc()
}
