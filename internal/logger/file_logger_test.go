package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesSession(t *testing.T) {
	dir := t.TempDir()

	l, err := NewLoggerInDir(dir, "BTCUSDT", "mle", "run-1")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(l.GetLogPath()))

	l.LogFit(0.4, 100, 2, 1.73)
	l.LogTradeOpen("LONG", 2, 90, 111, 10)
	l.LogTradeClose("LONG", "mean_cross", 4, 100, 111, 1110, 11110)
	l.LogError("fit", errors.New("boom"))
	require.NoError(t, l.Close())

	content, err := os.ReadFile(l.GetLogPath())
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "OU SESSION STARTED")
	assert.Contains(t, text, "Run: run-1")
	assert.Contains(t, text, "[STATUS] Fitted mle")
	assert.Contains(t, text, "[TRADE] OPEN LONG bar=2 price=90.0000 shares=111")
	assert.Contains(t, text, "CLOSE LONG (mean_cross)")
	assert.Contains(t, text, "[ERROR] fit: boom")
	assert.Contains(t, text, "OU SESSION ENDED")
}

func TestLogger_CloseTwice(t *testing.T) {
	l, err := NewLoggerInDir(t.TempDir(), "", "ols", "run-2")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(l.GetLogPath()), "series_ols_")

	require.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}
