package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
)

func TestParseDate(t *testing.T) {
	now := time.Date(2024, time.May, 2, 0, 30, 0, 0, time.UTC)
	want := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	tests := []string{"2024-05-01", "2024/05/01", "May 1, 2024", "2024-05-01T18:45:00Z"}
	for _, input := range tests {
		got, err := parseDate(input, now)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	got, err := parseDate("", now)
	require.NoError(t, err)
	assert.Equal(t, want, got, "defaults to yesterday")

	_, err = parseDate("not a date", now)
	require.ErrorIs(t, err, coreerrors.ErrInvalidInput)
}
