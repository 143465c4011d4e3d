package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestXliHandler_Handle(t *testing.T) {
	t.Run("formats tab-separated fields", func(t *testing.T) {
		var buf bytes.Buffer
		h := &xliHandler{w: &buf, opID: "20240115T103000Z"}

		r := slog.NewRecord(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), slog.LevelInfo, "uploaded", 0)
		r.AddAttrs(slog.String("identity", "2024/1/2/cat"))

		if err := h.Handle(context.Background(), r); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}

		got := buf.String()
		want := "2024-01-15T10:30:00Z\tINFO\t20240115T103000Z\tuploaded\tidentity=2024/1/2/cat\n"
		if got != want {
			t.Errorf("Handle() output = %q, want %q", got, want)
		}
	})

	t.Run("WithAttrs prepends preset attributes", func(t *testing.T) {
		var buf bytes.Buffer
		var h slog.Handler = &xliHandler{w: &buf, opID: "op"}
		h = h.WithAttrs([]slog.Attr{slog.String("gateway", "s3")})

		r := slog.NewRecord(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), slog.LevelWarn, "retrying", 0)
		if err := h.Handle(context.Background(), r); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}

		got := buf.String()
		if !strings.Contains(got, "\tgateway=s3") {
			t.Errorf("Handle() output %q is missing the preset attr", got)
		}
		if !strings.Contains(got, "WARN") {
			t.Errorf("Handle() output %q is missing the level", got)
		}
	})
}
