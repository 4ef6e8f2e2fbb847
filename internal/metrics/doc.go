// Package metrics exposes Prometheus counters for ticks and reminders.
package metrics
