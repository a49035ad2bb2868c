package config

import (
	"io"

	"github.com/mpapenbr/livetiming-relay/log"
)

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// NewLogger creates a logger according to LogFormat and LogFilter.
// level falls back to info for json and debug for text output.
func NewLogger(w io.Writer, level string) (*log.Logger, error) {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if LogFilter != "" {
		filterOpt, err := log.WithFilter(LogFilter)
		if err != nil {
			return nil, err
		}
		opts = append(opts, filterOpt)
	}
	switch LogFormat {
	case "json":
		return log.New(w, parseLogLevel(level, log.InfoLevel), opts...), nil
	default:
		return log.DevLogger(w, parseLogLevel(level, log.DebugLevel), opts...), nil
	}
}
