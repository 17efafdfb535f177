package main

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
)

// parseDate returns the UTC day named by value, or the day before now when value is empty.
func parseDate(value string, now time.Time) (time.Time, error) {
	if value == "" {
		y, m, d := now.UTC().AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}

	parsed, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %w", coreerrors.ErrInvalidInput, value, err)
	}

	y, m, d := parsed.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
