package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestLevelForVerbosity(t *testing.T) {
	assert.Equal(t, "warn", LevelForVerbosity(0))
	assert.Equal(t, "info", LevelForVerbosity(1))
	assert.Equal(t, "debug", LevelForVerbosity(2))
	assert.Equal(t, "trace", LevelForVerbosity(5))
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, "info", false)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l := Component("wire")
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "wire", entry["component"])
	assert.Equal(t, "hello", entry["message"])
}
