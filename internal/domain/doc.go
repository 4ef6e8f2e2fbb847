// Package domain holds the records tracked by nudger: candidates, schools,
// the invitations and messages schools send, and the reminder events the
// reminder engine appends to candidates.
//
// Records are plain values. Every state transition goes through an explicit
// operation on internal/store, which hands out copies.
package domain
