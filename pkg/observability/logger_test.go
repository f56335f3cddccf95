package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{" warn ", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("writes JSON", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger("info", &buf)
		logger.WithField("topic", "nexus.alert").Info("published")

		var entry map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
		}
		if entry["message"] != "published" {
			t.Errorf("message = %v, want published", entry["message"])
		}
		if entry["topic"] != "nexus.alert" {
			t.Errorf("topic = %v, want nexus.alert", entry["topic"])
		}
		if entry["level"] != "info" {
			t.Errorf("level = %v, want info", entry["level"])
		}
		if _, ok := entry["timestamp"]; !ok {
			t.Error("expected timestamp field")
		}
	})

	t.Run("filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger("warn", &buf)
		logger.Info("hidden")
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %s", buf.String())
		}
	})

	t.Run("nil output defaults to stdout", func(t *testing.T) {
		if logger := NewLogger("info", nil); logger.Out == nil {
			t.Error("expected non-nil output")
		}
	})
}

func TestWithTraceContext(t *testing.T) {
	logger := NewLogger("info", &bytes.Buffer{})
	entry := logrus.NewEntry(logger)

	t.Run("no span", func(t *testing.T) {
		got := WithTraceContext(context.Background(), entry)
		if _, ok := got.Data["trace_id"]; ok {
			t.Error("expected no trace_id without a span")
		}
	})

	t.Run("recording span", func(t *testing.T) {
		recorder := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		defer tp.Shutdown(context.Background())

		ctx, span := tp.Tracer(TracerName).Start(context.Background(), "analyze")
		defer span.End()

		got := WithTraceContext(ctx, entry)
		if got.Data["trace_id"] != span.SpanContext().TraceID().String() {
			t.Errorf("trace_id = %v, want %s", got.Data["trace_id"], span.SpanContext().TraceID())
		}
		if got.Data["span_id"] != span.SpanContext().SpanID().String() {
			t.Errorf("span_id = %v, want %s", got.Data["span_id"], span.SpanContext().SpanID())
		}
	})
}
