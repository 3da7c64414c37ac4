// Package logger configures the process wide structured logger.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// DefaultLevel is used when no level is given.
const DefaultLevel = "info"

// ErrInvalidLevel is returned for an unknown level name.
var ErrInvalidLevel = errors.New("invalid log level")

// Levels lists the accepted level names, most verbose first.
var Levels = []string{"trace", "debug", "info", "warn", "error", "crit"}

var levelsByName = map[string]slog.Level{
	"trace": log.LevelTrace,
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
	"crit":  log.LevelCrit,
}

// ParseLevel converts a level name to its slog level. The empty string
// selects DefaultLevel.
func ParseLevel(name string) (slog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultLevel
	}
	lvl, ok := levelsByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q (want one of %s)", ErrInvalidLevel, name, strings.Join(Levels, ", "))
	}
	return lvl, nil
}

// New returns a terminal format logger writing to w at the given level.
func New(level string, w io.Writer) (log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewLogger(log.NewTerminalHandlerWithLevel(w, lvl, false)), nil
}

// Setup installs a logger built by New as the root logger and returns it.
func Setup(level string, w io.Writer) (log.Logger, error) {
	l, err := New(level, w)
	if err != nil {
		return nil, err
	}
	log.SetDefault(l)
	return l, nil
}

// Discard returns a logger that drops every record.
func Discard() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}
