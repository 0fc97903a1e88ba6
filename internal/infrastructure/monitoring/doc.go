/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the panel
service, tracking HTTP requests, file engine operations, and system metrics.

# Features

- HTTP request metrics (latency, throughput, size)
- File operation metrics (duration, outcome per operation)
- Tenant provisioning metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record file engine operations
	metrics.RecordFileOp("write", "ok", elapsed)

# Metrics Endpoints

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

Snapshot() feeds the JSON aggregate endpoint for dashboards that do not
scrape Prometheus.
*/
package monitoring
