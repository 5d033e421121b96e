// Package debug provides the logger shared by the rest of the module.
// Setting $WAYLAND_DEBUG to a positive integer enables tracing of
// every message sent and received.
package debug

import (
	"os"
	"strconv"

	"github.com/charmbracelet/log"
)

var (
	enabled bool

	// Logger is the default logger for displays and clients that are
	// not given one explicitly.
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "wayland",
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
)

func init() {
	debugLevel, err := strconv.ParseInt(os.Getenv("WAYLAND_DEBUG"), 10, 0)
	if err != nil {
		return
	}
	if debugLevel > 0 {
		enabled = true
		Logger.SetLevel(log.DebugLevel)
	}
}

// Enabled reports whether message tracing is on.
func Enabled() bool {
	return enabled
}

// Printf logs a message trace line if tracing is enabled.
func Printf(str string, args ...any) {
	if !enabled {
		return
	}
	Logger.Debugf(str, args...)
}
