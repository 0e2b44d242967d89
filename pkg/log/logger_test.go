package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.InfoLevel, Type: JSONLogger, Out: &buf})

	Store.Info().Str("path", "/tmp/db").Msg("opened")
	Store.Debug().Msg("dropped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "store", entry["component"])
	assert.Equal(t, "opened", entry["message"])
	assert.Equal(t, "/tmp/db", entry["path"])
}

func TestInit_Console(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.DebugLevel, Type: ConsoleLogger, Out: &buf})

	Engine.Warn().Msg("slow")
	out := buf.String()
	assert.Contains(t, out, "| WARN  |")
	assert.Contains(t, out, `message: "slow" |`)
	assert.Contains(t, out, `"component": "engine" |`)
}

func TestParseLoggerType(t *testing.T) {
	typ, err := ParseLoggerType("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSONLogger, typ)

	typ, err = ParseLoggerType("")
	require.NoError(t, err)
	assert.Equal(t, ConsoleLogger, typ)

	_, err = ParseLoggerType("xml")
	assert.Error(t, err)
}
