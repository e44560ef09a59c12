package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/codezcracker/smart-garden-core/internal/infrastructure/config"
)

// Logger is the process-wide structured logger. It embeds slog.Logger, so
// callers get Info/Warn/Error/Debug with key-value attributes directly.
//
// Every line carries service and version attributes so log aggregation can
// tell controller builds apart once several gardens report to one place.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of config.yaml.
//
// gardend normally runs as a systemd unit on the garden controller, where
// journald captures stdout, so the default is JSON on stdout. Text format
// exists for running the daemon by hand during bring-up.
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(cfg, writerFor(cfg.Output))
	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "smartgarden-core"),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// Default is the bootstrap logger used before config.yaml has been read.
// Config load failures themselves have to land somewhere.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// With returns a child logger carrying extra default attributes, typically
// a component tag:
//
//	mqttLog := log.With("component", "mqtt")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

func writerFor(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

func newHandler(cfg config.LoggingConfig, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel maps a config level string to slog. Unrecognised values fall
// back to info rather than failing startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
