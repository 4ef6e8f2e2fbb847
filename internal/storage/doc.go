// Package storage journals appended reminders for a downstream delivery
// process. Entity state stays in memory; the journal is write-mostly and
// only read back for diagnostics.
package storage
