// Package metrics provides Prometheus metrics collection for Bastion.
//
// # Overview
//
// The metrics package owns the process-wide Prometheus registry and the
// HTTP exposition endpoint. Component metric sets — the guard engine's
// authorization counters, breaker transition counters, anomaly flags —
// register on the collector's registry at startup.
//
// # Usage
//
//	collector := metrics.NewCollector(metrics.Config{Enabled: true})
//	guardMetrics := guard.NewMetrics(collector.Registry())
//
//	http.Handle(collector.Path(), collector.Handler())
package metrics
