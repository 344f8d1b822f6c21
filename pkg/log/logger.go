package log

import (
	"fmt"
	"os"
	"strings"

	bperrors "github.com/YuminosukeSato/bodyperf/pkg/errors"
)

// SetupLogger installs a zerolog JSON logger on stderr at the given level
// ("debug", "info", "warn", "error") as the package default Logger.
// Warnings raised through pkg/errors are routed to it as well.
func SetupLogger(loglevel string) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}
	zl := NewZerologLogger(os.Stderr, level)
	SetLogger(zl)
	bperrors.SetZerologWarnFunc(zl.warn)
	return nil
}

// ParseLevel converts a level name into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// ErrAttrKey is the field that carries the error message of a record.
const ErrAttrKey = "error"
