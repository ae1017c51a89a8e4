// Package log carries clog loggers through contexts and wires the process
// logging fanout.
package log

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/chainguard-dev/clog"
	charmlog "github.com/charmbracelet/log"
	slogmulti "github.com/samber/slog-multi"
)

// Setup installs the process-wide logging fanout on the context: a console
// handler plus any extra handlers (a trace exporter, a file sink). The
// returned context carries the clog logger the leveled helpers below write
// through.
func Setup(ctx context.Context, debug bool, extra ...slog.Handler) context.Context {
	level := charmlog.InfoLevel
	if debug {
		level = charmlog.DebugLevel
	}
	console := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
	})

	handlers := append([]slog.Handler{console}, extra...)
	logger := clog.New(slogmulti.Fanout(handlers...))
	ctx = clog.WithLogger(ctx, logger)
	slog.SetDefault(&logger.Logger)
	return ctx
}

func Info(ctx context.Context, msg string, args ...any) {
	log(ctx, clog.FromContext(ctx), slog.LevelInfo, msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	log(ctx, clog.FromContext(ctx), slog.LevelDebug, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	log(ctx, clog.FromContext(ctx), slog.LevelWarn, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	log(ctx, clog.FromContext(ctx), slog.LevelError, msg, args...)
}

// With returns a context whose logger carries the extra attributes.
func With(ctx context.Context, args ...any) context.Context {
	logger := clog.FromContext(ctx).With(args...)
	return clog.WithLogger(ctx, logger)
}

func log(ctx context.Context, l *clog.Logger, level slog.Level, msg string, args ...any) {
	if !l.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])
	pc = pcs[0]

	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}
