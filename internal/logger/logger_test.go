package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestVerboseGate(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		log     func(l *Logger)
		want    string
	}{
		{"debug hidden", false, func(l *Logger) { l.Debug("hidden %d", 1) }, ""},
		{"info hidden", false, func(l *Logger) { l.Info("hidden") }, ""},
		{"warn shown", false, func(l *Logger) { l.Warn("disk %s", "full") }, "WARN [sweep] disk full"},
		{"error shown", false, func(l *Logger) { l.Error("boom") }, "ERROR [sweep] boom"},
		{"debug shown", true, func(l *Logger) { l.Debug("n=%d", 3) }, "DEBUG [sweep] n=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewWithWriter("sweep", tt.verbose, &buf))
			got := buf.String()
			if tt.want == "" {
				if got != "" {
					t.Errorf("Expected no output, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Expected output to contain %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFieldsAreAppended(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("matrix", true, &buf)
	l.InfoWithFields("built", []Field{Count(3), F("dims", 2), Error(errors.New("x"))})

	got := buf.String()
	if !strings.Contains(got, "built [count=3 dims=2 error=x]") {
		t.Errorf("Unexpected field rendering: %q", got)
	}
}

func TestPercentWithoutArgs(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("cli", false, &buf).Warn("100% done")
	if !strings.Contains(buf.String(), "100% done") {
		t.Errorf("Expected literal percent sign, got %q", buf.String())
	}
}

func TestNilLoggerIsSilent(t *testing.T) {
	var l *Logger
	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d")
	l.WarnWithFields("e", nil)
	if l.WithComponent("x") != nil {
		t.Error("Expected nil logger to stay nil")
	}
}

func TestWithComponentSharesWriter(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("root", false, &buf)
	base.WithComponent("export").Warn("skipped")
	if !strings.Contains(buf.String(), "[export] skipped") {
		t.Errorf("Expected component name in output, got %q", buf.String())
	}
}
