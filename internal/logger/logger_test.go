package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init("loud", "json")
	assert.Error(t, err)
}

func TestInitBuildsLogger(t *testing.T) {
	defer Set(nil)
	require.NoError(t, Init("debug", "console"))
	assert.NotNil(t, L())
}

func TestHelpersWriteToCurrentLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))
	defer Set(nil)

	Info("message created", zap.String("id", "abc"))
	Warn("cache unavailable")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "message created", entries[0].Message)
	assert.Equal(t, "abc", entries[0].ContextMap()["id"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
}
