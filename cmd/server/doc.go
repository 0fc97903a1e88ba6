// Package main is the entry point for the panel file service.
//
// The service exposes the per-tenant sandboxed file engine of the
// hosting control panel over a REST API plus the legacy connector
// protocol used by the web file manager.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8080 -base /srv/panel/tenants
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
