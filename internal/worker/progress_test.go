package worker

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func fixedProgress(total int, enabled bool, elapsed time.Duration) *Progress {
	p := NewProgress(total, enabled)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p.startTime = start
	p.now = func() time.Time { return start.Add(elapsed) }
	return p
}

func TestProgress_Update(t *testing.T) {
	p := NewProgress(10, false)

	p.Update(5, 10, 0)

	if p.completed != 5 {
		t.Errorf("Expected completed=5, got %d", p.completed)
	}
	if p.total != 10 {
		t.Errorf("Expected total=10, got %d", p.total)
	}
}

func TestProgress_Print(t *testing.T) {
	var buf bytes.Buffer

	p := fixedProgress(10, true, 10*time.Second)
	p.output = &buf

	p.Update(5, 10, 1)

	output := buf.String()

	if !strings.HasPrefix(output, "\r[") {
		t.Errorf("Expected carriage return and bar, got: %q", output)
	}
	if !strings.Contains(output, strings.Repeat("█", 15)+strings.Repeat("░", 15)) {
		t.Errorf("Expected half-filled bar, got: %s", output)
	}
	if !strings.Contains(output, "5/10 images") {
		t.Errorf("Expected '5/10 images' in output, got: %s", output)
	}
	if !strings.Contains(output, "(1 failed)") {
		t.Errorf("Expected '(1 failed)' in output, got: %s", output)
	}
	if !strings.Contains(output, "0.5 images/sec") {
		t.Errorf("Expected '0.5 images/sec' in output, got: %s", output)
	}
	if !strings.Contains(output, "ETA: 10s") {
		t.Errorf("Expected 'ETA: 10s' in output, got: %s", output)
	}
}

func TestProgress_ZeroTotal(t *testing.T) {
	p := fixedProgress(0, false, time.Second)

	line := p.Line()
	if !strings.Contains(line, "0/0 images") {
		t.Errorf("Expected '0/0 images', got: %s", line)
	}
	if !strings.Contains(line, strings.Repeat("░", barWidth)) {
		t.Errorf("Expected empty bar, got: %s", line)
	}
}

func TestProgress_Done(t *testing.T) {
	var buf bytes.Buffer

	p := fixedProgress(3, true, 3*time.Second)
	p.output = &buf

	p.Update(3, 3, 0)
	buf.Reset()

	p.Done()

	output := buf.String()
	if !strings.Contains(output, "Done in 3s") {
		t.Errorf("Expected 'Done in 3s' in output, got: %s", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("Expected output to end with newline")
	}
}

func TestProgress_Summary(t *testing.T) {
	p := fixedProgress(10, false, 10*time.Second)

	p.Update(10, 10, 2)

	want := "Enhanced 8/10 images (2 failed) in 10s (1.0 images/sec)"
	if got := p.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestProgress_Disabled(t *testing.T) {
	var buf bytes.Buffer

	p := NewProgress(10, false)
	p.output = &buf

	p.Update(5, 10, 0)

	if buf.Len() != 0 {
		t.Errorf("Expected no output when disabled, got: %s", buf.String())
	}
}

func TestProgress_Callback(t *testing.T) {
	p := NewProgress(10, false)

	p.Callback()(5, 10, 1)

	if p.completed != 5 {
		t.Errorf("Expected completed=5, got %d", p.completed)
	}
	if p.failed != 1 {
		t.Errorf("Expected failed=1, got %d", p.failed)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		expected string
		duration time.Duration
	}{
		{duration: 30 * time.Second, expected: "30s"},
		{duration: 90 * time.Second, expected: "1m30s"},
		{duration: 5 * time.Minute, expected: "5m0s"},
		{duration: 65 * time.Minute, expected: "1h5m"},
		{duration: 2*time.Hour + 30*time.Minute, expected: "2h30m"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := formatDuration(tt.duration); got != tt.expected {
				t.Errorf("formatDuration(%v) = %s, want %s", tt.duration, got, tt.expected)
			}
		})
	}
}
