package supervisor

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateHead_BelowCeilingUnmodified(t *testing.T) {
	text := "line one\nline two\nline three"
	out, info := truncateHead(text, 10, 1024)
	if out != text {
		t.Errorf("text below ceiling must be unmodified, got %q", out)
	}
	if info.Truncated {
		t.Error("no truncation expected")
	}
}

func TestTruncateHead_ExactLineCeiling(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = "line"
	}
	text := strings.Join(lines, "\n")

	out, info := truncateHead(text, 10, 1024)
	if out != text || info.Truncated {
		t.Errorf("text at exactly the ceiling must pass untouched")
	}
}

func TestTruncateHead_LineCeilingExceeded(t *testing.T) {
	lines := make([]string, 25)
	for i := range lines {
		lines[i] = "content"
	}
	text := strings.Join(lines, "\n")

	out, info := truncateHead(text, 10, 64*1024)
	if !info.Truncated {
		t.Fatal("truncation expected")
	}
	if info.OriginalLines != 25 {
		t.Errorf("original lines = %d, want 25", info.OriginalLines)
	}

	marker := "[output truncated"
	if !strings.Contains(out, marker) {
		t.Fatalf("marker missing from %q", out)
	}
	content := out[:strings.Index(out, "\n"+marker)]
	if got := len(strings.Split(content, "\n")); got != 10 {
		t.Errorf("kept %d lines, want exactly the ceiling of 10", got)
	}
	if !strings.HasPrefix(content, "content") {
		t.Error("truncation must keep the head, not the tail")
	}
}

func TestTruncateHead_ByteCeiling(t *testing.T) {
	text := strings.Repeat("aaaaaaaaaa\n", 50) // 550 bytes, 51 lines
	out, info := truncateHead(text, 1000, 100)
	if !info.Truncated {
		t.Fatal("truncation expected")
	}
	content := out[:strings.Index(out, "\n[output truncated")]
	if len(content) > 100 {
		t.Errorf("content %d bytes exceeds the 100 byte ceiling", len(content))
	}
}

func TestTruncateHead_ByteCutKeepsRunesWhole(t *testing.T) {
	// A single oversized line is cut at the byte ceiling; the cut must
	// never land inside a multi-byte rune.
	text := "x" + strings.Repeat("日", 60) // one line, 181 bytes
	out, info := truncateHead(text, 1000, 100)
	if !info.Truncated {
		t.Fatal("truncation expected")
	}
	content := out[:strings.Index(out, "\n[output truncated")]
	if len(content) > 100 {
		t.Errorf("content %d bytes exceeds the 100 byte ceiling", len(content))
	}
	if !utf8.ValidString(content) {
		t.Errorf("truncated content is not valid UTF-8: %q", content)
	}
}

func TestTruncateHead_EmptyText(t *testing.T) {
	out, info := truncateHead("", 10, 100)
	if out != "" || info.Truncated {
		t.Errorf("empty text passes through, got %q %+v", out, info)
	}
}

func TestTruncateHead_ZeroCeilingsUseDefaults(t *testing.T) {
	text := "short"
	out, info := truncateHead(text, 0, 0)
	if out != text || info.Truncated {
		t.Errorf("defaults should apply, got %q %+v", out, info)
	}
}
