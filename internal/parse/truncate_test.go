package parse

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short enough", "hello", 10, "hello"},
		{"exact fit", "exactly10!", 10, "exactly10!"},
		{"sentence boundary", "Sentence one is long. More", 25, "Sentence one is long."},
		{"word boundary beats early sentence", "A good one. Then some trailing words", 20, "A good one. Then…"},
		{"word boundary", "word word word", 10, "word word…"},
		{"hard cut", "abcdefghijklmnopqrst", 10, "abcdefghi…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
			if len([]rune(got)) > tt.maxLen {
				t.Errorf("result exceeds budget: %d > %d", len([]rune(got)), tt.maxLen)
			}
		})
	}
}

func TestTruncateNeverMidWord(t *testing.T) {
	// A boundary exists within budget: the cut must land on it.
	got := Truncate("word word word.", 10)
	if strings.Contains(strings.TrimSuffix(got, "…"), "wor ") {
		t.Errorf("cut mid-word: %q", got)
	}
	if got != "word word…" {
		t.Errorf("expected 'word word…', got %q", got)
	}
}

func TestTruncateRuneSafe(t *testing.T) {
	got := Truncate(strings.Repeat("ß", 20), 10)
	if len([]rune(got)) > 10 {
		t.Errorf("rune budget exceeded: %q", got)
	}
	for _, r := range got {
		if r == '�' {
			t.Errorf("broken UTF-8 in result: %q", got)
		}
	}
}
