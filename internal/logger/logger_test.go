package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "", want: log.LevelInfo},
		{in: "info", want: log.LevelInfo},
		{in: "trace", want: log.LevelTrace},
		{in: " DEBUG ", want: log.LevelDebug},
		{in: "warn", want: log.LevelWarn},
		{in: "error", want: log.LevelError},
		{in: "crit", want: log.LevelCrit},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, name := range []string{"loud", "warning", "fatal", "5"} {
		_, err := ParseLevel(name)
		assert.ErrorIs(t, err, ErrInvalidLevel, name)
	}
}

func TestLevelsAllParse(t *testing.T) {
	prev := slog.Level(-100)
	for _, name := range Levels {
		lvl, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Greater(t, lvl, prev, name)
		prev = lvl
	}
	assert.Len(t, levelsByName, len(Levels))
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", &buf)
	require.NoError(t, err)

	l.Info("hidden message")
	l.Warn("visible message", "nonce", 42)

	out := buf.String()
	assert.NotContains(t, out, "hidden message")
	assert.Contains(t, out, "visible message")
	assert.Contains(t, out, "nonce=42")
}

func TestSetupInstallsRoot(t *testing.T) {
	prev := log.Root()
	defer log.SetDefault(prev)

	var buf bytes.Buffer
	_, err := Setup("debug", &buf)
	require.NoError(t, err)

	log.Debug("from root", "backend", "cpu")
	assert.Contains(t, buf.String(), "from root")
	assert.Contains(t, buf.String(), "backend=cpu")

	_, err = Setup("nope", &buf)
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().Error("dropped", "k", "v")
	})
}
