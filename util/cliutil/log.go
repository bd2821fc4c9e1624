package cliutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type LogOptions struct {
	// path to write to; "" or "-" is stdout
	LogPath string

	// text|json
	LogFormat string

	// info|debug|warn|error
	LogLevel string
}

func firstenv(env_var_names ...string) string {
	for _, env_var_name := range env_var_names {
		val := os.Getenv(env_var_name)
		if val != "" {
			return val
		}
	}
	return ""
}

// SetupSlog integrates passed in options and env vars, and installs the result as the slog default.
//
// passing default cliutil.LogOptions{} is ok.
//
// CAUSALKV_LOG_LEVEL=info|debug|warn|error
//
// CAUSALKV_LOG_FMT=text|json
//
// CAUSALKV_LOG_FILE=path (or "-" or "" for stdout)
func SetupSlog(options LogOptions) (*slog.Logger, error) {
	var hopts slog.HandlerOptions
	hopts.AddSource = true

	level, err := ParseLevel(firstNonEmpty(options.LogLevel, firstenv("CAUSALKV_LOG_LEVEL", "LOG_LEVEL", "GOLOG_LOG_LEVEL")))
	if err != nil {
		return nil, err
	}
	hopts.Level = level

	format := strings.ToLower(firstNonEmpty(options.LogFormat, firstenv("CAUSALKV_LOG_FMT", "LOG_FMT", "GOLOG_LOG_FMT")))
	if format == "" {
		format = "text"
	}

	path := firstNonEmpty(options.LogPath, firstenv("CAUSALKV_LOG_FILE", "GOLOG_FILE"))
	var out io.Writer
	if path == "" || path == "-" {
		out = os.Stdout
	} else {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0664)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = f
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(out, &hopts)
	case "json":
		handler = slog.NewJSONHandler(out, &hopts)
	default:
		return nil, fmt.Errorf("invalid log format: %#v", format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel maps a level name to a slog level. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %#v", s)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
