package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/stratum/internal/adapters/logger"
)

func TestPrettyHandler_Levels(t *testing.T) {
	tests := []struct {
		name   string
		level  slog.Level
		msg    string
		golden string
	}{
		{name: "info", level: slog.LevelInfo, msg: "processing 4 units sequentially", golden: "handler_info"},
		{name: "warn", level: slog.LevelWarn, msg: "parallel processing unavailable", golden: "handler_warn"},
		{name: "error", level: slog.LevelError, msg: "batch failed", golden: "handler_error"},
		{name: "debug filtered", level: slog.LevelDebug, msg: "hidden", golden: "handler_debug_filtered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")

			buf := &bytes.Buffer{}
			lg := slog.New(logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
			lg.Log(t.Context(), tt.level, tt.msg)

			goldie.New(t).Assert(t, tt.golden, buf.Bytes())
		})
	}
}

func TestPrettyHandler_DebugWhenEnabled(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := slog.New(logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	lg.Debug("cache miss", "key", "storey-01")

	goldie.New(t).Assert(t, "handler_debug", buf.Bytes())
}

func TestPrettyHandler_Attrs(t *testing.T) {
	tests := []struct {
		name   string
		attrs  []slog.Attr
		golden string
	}{
		{
			name:   "single",
			attrs:  []slog.Attr{slog.String("unit", "L01")},
			golden: "handler_attrs_single",
		},
		{
			name:   "multiple",
			attrs:  []slog.Attr{slog.String("strategy", "parallel"), slog.Int("workers", 4)},
			golden: "handler_attrs_multi",
		},
		{
			name:   "group flattened",
			attrs:  []slog.Attr{slog.Group("cache", slog.Int("hits", 3), slog.Int("misses", 1))},
			golden: "handler_attrs_group",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")

			buf := &bytes.Buffer{}
			handler := logger.NewPrettyHandler(buf, nil).WithAttrs(tt.attrs)
			slog.New(handler).Info("batch done")

			goldie.New(t).Assert(t, tt.golden, buf.Bytes())
		})
	}
}

func TestPrettyHandler_WithGroup(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	var handler slog.Handler = logger.NewPrettyHandler(buf, nil)
	handler = handler.WithGroup("batch").WithGroup("")
	handler = handler.WithGroup("unit")

	slog.New(handler).Info("unit done", "index", 2)

	goldie.New(t).Assert(t, "handler_group_nested", buf.Bytes())
}

func TestPrettyHandler_LevelVar(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	level := &slog.LevelVar{}
	level.Set(slog.LevelWarn)

	buf := &bytes.Buffer{}
	lg := slog.New(logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: level}))

	lg.Info("first")
	assert.Empty(t, buf.String())

	level.Set(slog.LevelInfo)
	lg.Info("second")
	assert.Equal(t, "second\n", buf.String())
}
