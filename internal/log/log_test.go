package log

import (
	"context"
	"log/slog"
	"testing"

	"github.com/chainguard-dev/clog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level   slog.Level
	message string
	attrs   map[string]string
}

// recordingHandler flattens handler-level and record-level attributes into
// one entry per log call.
type recordingHandler struct {
	entries *[]logEntry
	attrs   map[string]string
}

func (h recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h recordingHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]string, len(h.attrs))
	for k, v := range h.attrs {
		attrs[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})
	*h.entries = append(*h.entries, logEntry{r.Level, r.Message, attrs})
	return nil
}

func (h recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make(map[string]string, len(h.attrs)+len(attrs))
	for k, v := range h.attrs {
		merged[k] = v
	}
	for _, a := range attrs {
		merged[a.Key] = a.Value.String()
	}
	return recordingHandler{entries: h.entries, attrs: merged}
}

func (h recordingHandler) WithGroup(string) slog.Handler { return h }

func TestHelpersWriteThroughContextLogger(t *testing.T) {
	var entries []logEntry
	handler := recordingHandler{entries: &entries, attrs: map[string]string{}}
	ctx := clog.WithLogger(context.Background(), clog.New(handler))
	ctx = With(ctx, "namespace", "qac")

	Debug(ctx, "probing key")
	Info(ctx, "renewed lease", "lease_id", "aws/creds/lease-1")
	Warn(ctx, "instance gone")
	Error(ctx, "vault unreachable")

	require.Len(t, entries, 4)
	assert.Equal(t, slog.LevelDebug, entries[0].level)
	assert.Equal(t, slog.LevelInfo, entries[1].level)
	assert.Equal(t, slog.LevelWarn, entries[2].level)
	assert.Equal(t, slog.LevelError, entries[3].level)

	assert.Equal(t, "renewed lease", entries[1].message)
	assert.Equal(t, "aws/creds/lease-1", entries[1].attrs["lease_id"])
	for _, entry := range entries {
		assert.Equal(t, "qac", entry.attrs["namespace"], "With attributes must reach every record")
	}
}
