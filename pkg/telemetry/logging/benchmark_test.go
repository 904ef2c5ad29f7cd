package logging

import (
	"bytes"
	"log/slog"
	"testing"
)

// BenchmarkHandler_Info measures the full record path including
// redaction and ring capture.
func BenchmarkHandler_Info(b *testing.B) {
	buf := &bytes.Buffer{}
	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(NewHandler(inner, NewRing(1000)))

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		logger.Info("request completed", "provider", "anthropic", "latency_ms", i)
	}
}

// BenchmarkHandler_Debug_Disabled measures the cost of a filtered call.
func BenchmarkHandler_Debug_Disabled(b *testing.B) {
	buf := &bytes.Buffer{}
	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(NewHandler(inner, NewRing(1000)))

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		logger.Debug("noise", "count", i)
	}
}

// BenchmarkRedactString measures pattern scanning on a typical message.
func BenchmarkRedactString(b *testing.B) {
	r := NewRedactor()
	input := "upstream rejected key sk-ant-api03-abc123 with status 401"

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		r.RedactString(input)
	}
}
