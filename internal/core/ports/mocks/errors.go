package mocks

import "errors"

var (
	// ErrUnknownContributor is returned when a contributor id was never registered.
	ErrUnknownContributor = errors.New("unknown contributor")

	// ErrNoDay is returned when no records were registered for a day.
	ErrNoDay = errors.New("no records for day")
)
