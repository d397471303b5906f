package postgres

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClampContent(t *testing.T) {
	long := "мне снилось что я " + strings.Repeat("летал", 300)
	got := clampContent(long, 1000)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: % x", got[len(got)-6:])
	}
	if n := len([]rune(got)); n != 1000 {
		t.Errorf("truncated to %d runes, want 1000", n)
	}
	if !strings.HasPrefix(long, got) {
		t.Error("truncation changed the content prefix")
	}

	if got := clampContent("короткий сон", 1000); got != "короткий сон" {
		t.Errorf("short content changed: %q", got)
	}
	ascii := strings.Repeat("a", 2000)
	if got := clampContent(ascii, 1000); len(got) != 1000 {
		t.Errorf("ascii clamp = %d bytes, want 1000", len(got))
	}
}
