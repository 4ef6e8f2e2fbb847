package domain

import "errors"

var (
	// ErrReference is returned when an invitation or message points at a
	// candidate or school that does not exist.
	ErrReference = errors.New("unknown reference")

	// ErrNotFound is returned when an id does not exist in its collection.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a one-shot transition has already
	// happened (invitation already resolved, message already read) or when a
	// reminder would break the chronological order of a candidate's history.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidDecision is returned when an invitation reply is neither
	// accepted nor rejected.
	ErrInvalidDecision = errors.New("invalid decision")
)
