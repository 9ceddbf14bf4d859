package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetupLoggerWritesToFile(t *testing.T) {
	defer CloseLogger()

	path := filepath.Join(t.TempDir(), "dupfinder.log")
	require.NoError(t, SetupLogger(false, path))

	LogWarning("cannot open %s", "a.png")
	LogImageProcessed("b.png", false, "corrupt")
	CloseLogger()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cannot open a.png")
	assert.Contains(t, string(data), "b.png")
}

func TestSetupLoggerIsIdempotent(t *testing.T) {
	defer CloseLogger()

	require.NoError(t, SetupLogger(true, ""))
	first := Logger()
	require.NoError(t, SetupLogger(false, ""))
	assert.Same(t, first, Logger())
}

func TestLevelsReachLogger(t *testing.T) {
	defer CloseLogger()

	core, logs := observer.New(zap.DebugLevel)
	UseLogger(zap.New(core))

	DebugLog("debug %d", 1)
	LogInfo("info %d", 2)
	LogWarning("warn %d", 3)
	LogError("error %d", 4)
	LogImageProcessed("ok.png", true, "")

	entries := logs.AllUntimed()
	require.Len(t, entries, 5)
	assert.Equal(t, "debug 1", entries[0].Message)
	assert.Equal(t, zap.ErrorLevel, entries[3].Level)
	assert.Equal(t, "processed", entries[4].Message)
}

func TestCloseLoggerResetsToNop(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	UseLogger(zap.New(core))
	CloseLogger()

	LogInfo("dropped")
	assert.Zero(t, logs.Len())
}
