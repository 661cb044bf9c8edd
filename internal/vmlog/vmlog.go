// Package vmlog provides the package-level logger used by the mapping,
// view, and storage layers to record size-changing VM operations.
//
// A *slog.Logger that discards everything until Init is called by an
// application's main(). Library code only ever calls L.Debug/L.Warn;
// it never configures the handler itself.
package vmlog

import (
	"io"
	"log/slog"
)

// L is the package-level logger. Discards all output until Init runs.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures Init.
type Options struct {
	Writer io.Writer  // destination; os.Stderr is typical
	Level  slog.Level // minimum level
}

// Init installs a text handler writing to opts.Writer at opts.Level.
// Call once from main() before touching any vmkit package.
func Init(opts Options) {
	if opts.Writer == nil {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	L = slog.New(slog.NewTextHandler(opts.Writer, &slog.HandlerOptions{Level: opts.Level}))
}
