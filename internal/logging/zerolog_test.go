package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewZerolog(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, "warn", "database")

	l.Info().Msg("filtered")
	l.Warn().Str("path", "snap.db").Msg("slow query")

	out := buf.String()
	assert.NotContains(t, out, "filtered")
	assert.Contains(t, out, "slow query")
	assert.Contains(t, out, "component=database")
	assert.Contains(t, out, "path=snap.db")
}

func TestNewZerolog_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, "chatty", "influx")

	l.Debug().Msg("hidden")
	l.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
