package common

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewComponentLogger returns a console logger tagged with a component name.
// Services hold one of these instead of using the global logger so log lines
// can be filtered per component.
func NewComponentLogger(component string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).With().Timestamp().Str("component", component).Logger()
}
