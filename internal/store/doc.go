// Package store keeps candidates, schools, invitations and messages in memory
// together with their cross-references.
//
// It is the only sanctioned way to change entity state:
//   - creation of candidates, schools, invitations and messages
//   - the single read of a message and the single reply to an invitation
//   - appending reminders, through WithCandidate
//
// Failed operations never leave partial changes behind.
package store
