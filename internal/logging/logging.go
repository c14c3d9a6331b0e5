package logging

import (
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Setup configures the process-wide logger. Production logs are JSON so
// they can be shipped as-is; everything else gets the readable text format.
// Call it once at startup, before any component asks for a logger.
func Setup(level, env string) *log.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}

	opts := log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "billiards",
	}
	if env == "production" {
		opts.Formatter = log.JSONFormatter
	}

	logger := log.NewWithOptions(os.Stderr, opts)
	log.SetDefault(logger)
	if err != nil && level != "" {
		logger.Warn("unknown LOG_LEVEL, using info", "value", level)
	}
	return logger
}

// For returns a child of the default logger tagged with a component name.
// The child copies the level at creation time, so components create theirs
// after Setup has run.
func For(component string) *log.Logger {
	return log.Default().WithPrefix(component)
}
