package log

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/tuanvumaihuynh/inventory-service/internal/config"
)

// NewSlogLogger logs to stdout and installs the logger as slog's default.
func NewSlogLogger(cfg config.Log) *slog.Logger {
	logger := slog.New(NewHandler(os.Stdout, cfg))
	slog.SetDefault(logger)
	return logger
}

// NewHandler returns a JSON handler, or a colorized tint handler for TEXT,
// wrapped so records pick up correlation and trace ids from the context.
func NewHandler(w io.Writer, cfg config.Log) slog.Handler {
	var next slog.Handler
	switch cfg.Format {
	case config.LogFormatText:
		next = tint.NewHandler(w, &tint.Options{
			Level:       cfg.Level,
			AddSource:   cfg.AddSource,
			TimeFormat:  time.RFC3339,
			ReplaceAttr: highlightErrors,
		})
	default:
		next = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     cfg.Level,
			AddSource: cfg.AddSource,
		})
	}

	return contextHandler{next: next}
}

// tint color 9 is bright red.
const errorColor = 9

func highlightErrors(_ []string, a slog.Attr) slog.Attr {
	if err, ok := a.Value.Any().(error); ok && a.Value.Kind() == slog.KindAny && err != nil {
		return tint.Attr(errorColor, a)
	}
	return a
}
