package engine

import "errors"

var (
	ErrDisabled  = errors.New("task engine disabled")
	ErrStopped   = errors.New("task engine stopped")
	ErrQueueFull = errors.New("task engine queue full")
	// ErrStale is recorded for tasks dropped after waiting longer than MaxQueueDelay.
	ErrStale = errors.New("task waited too long in queue")
)
