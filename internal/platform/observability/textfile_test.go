package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digest.prom")

	ActionsRun.WithLabelValues("daily", StatusOK).Inc()

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mapcomplete_digest_actions_total{action="daily",status="ok"}`)
	assert.Contains(t, string(data), "mapcomplete_digest_last_run_timestamp_seconds")
}

func TestWriteTextfile_EmptyPath(t *testing.T) {
	assert.NoError(t, WriteTextfile(""))
}
