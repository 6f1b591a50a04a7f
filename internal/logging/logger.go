package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Options holds the parts of the process config the logger needs.
type Options struct {
	AppEnv  string
	Level   slog.Level
	Version string
	AppName string
}

func New(opts Options) *slog.Logger {
	return NewWithWriter(os.Stdout, opts)
}

// NewWithWriter is New with an explicit destination; CLIs log to stderr so
// stdout stays clean for their output.
func NewWithWriter(w io.Writer, opts Options) *slog.Logger {
	if opts.Version == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", opts.AppName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: opts.Level,
	})
	return slog.New(h).With(
		"app", opts.AppName,
		"version", opts.Version,
		"env", opts.AppEnv,
	)
}
