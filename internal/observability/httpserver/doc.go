// Package httpserver serves the local status endpoints: health, Prometheus
// metrics, schedule snapshots, recent reminders and optional pprof.
package httpserver
