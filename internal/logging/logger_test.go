package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"trace": TRACE,
		"DEBUG": DEBUG,
		"":      INFO,
		"warn":  WARN,
		"Error": ERROR,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLoggerWithOptions("transfer", Options{
		Dir:             dir,
		MinConsoleLevel: ERROR,
		MinFileLevel:    DEBUG,
	})
	require.NoError(t, err)

	logger.Debug("перенос %d предметов", 12)
	logger.Trace("этого в файле быть не должно")
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "transfer_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "перенос 12 предметов")
	assert.NotContains(t, string(data), "TRACE")
}

func TestUninitializedLoggingIsNoop(t *testing.T) {
	CloseDefaultLogger()
	assert.NotPanics(t, func() {
		Info("ничего не произойдёт %d", 1)
		GetComponentLogger("test").Warn("и здесь тоже")
	})
}
