package log

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestInitSetsComponentLevels(t *testing.T) {
	t.Cleanup(func() {
		Root, Processor, Ledger, Transport = zerolog.Nop(), zerolog.Nop(), zerolog.Nop(), zerolog.Nop()
	})

	Init(Options{LogLevel: zerolog.WarnLevel, Type: JSONLogger})
	for _, l := range []zerolog.Logger{Root, Processor, Ledger, Transport} {
		assert.Equal(t, zerolog.WarnLevel, l.GetLevel())
	}
}
