package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// setupLogger initializes a logger based on the environment provided.
// A non-empty level overrides the environment's level.
func setupLogger(w io.Writer, env, level string) (*slog.Logger, error) {
	var (
		log  *slog.Logger
		opts *slog.HandlerOptions
	)

	switch env {
	case envLocal:
		opts = &slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true}
	case envDev:
		opts = &slog.HandlerOptions{Level: slog.LevelInfo}
	case envProd:
		opts = &slog.HandlerOptions{Level: slog.LevelWarn, ReplaceAttr: dropTime}
	default:
		opts = &slog.HandlerOptions{Level: slog.LevelError, ReplaceAttr: dropTime}
	}

	if level != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		opts.Level = lvl
	}

	if env == envLocal {
		log = slog.New(slog.NewTextHandler(w, opts))
	} else {
		log = slog.New(slog.NewJSONHandler(w, opts))
	}

	if env != envLocal && env != envDev && env != envProd {
		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log, nil
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
