// Package cli wires the cobra command tree: run, tick and schedule.
package cli
