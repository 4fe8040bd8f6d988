package terminal

import (
	"bytes"
	"strings"
	"testing"
)

func TestLinesFor(t *testing.T) {
	tests := []struct {
		name   string
		length int
		width  int
		want   int
	}{
		{"empty", 0, 80, 2},
		{"fits", 40, 80, 2},
		{"exact", 80, 80, 2},
		{"wraps", 81, 80, 3},
		{"bad width", 100, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LinesFor(tt.length, tt.width); got != tt.want {
				t.Errorf("LinesFor(%d, %d) = %d, want %d", tt.length, tt.width, got, tt.want)
			}
		})
	}
}

func TestClearLines(t *testing.T) {
	var buf bytes.Buffer
	ClearLines(&buf, 3)
	out := buf.String()
	if got := strings.Count(out, "\x1b[2K"); got != 3 {
		t.Errorf("clears = %d, want 3", got)
	}
	if got := strings.Count(out, "\x1b[1A"); got != 2 {
		t.Errorf("moves up = %d, want 2", got)
	}
}
