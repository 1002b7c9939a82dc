package supervisor

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default ceilings for the final answer text.
const (
	DefaultMaxOutputLines = 400
	DefaultMaxOutputBytes = 64 * 1024
)

// truncationMarker is appended whenever text was cut.
const truncationMarker = "\n[output truncated: %d of %d lines shown]"

// truncateHead keeps the head of text up to maxLines lines and maxBytes
// bytes, appending a marker when anything was cut. Text at or below
// both ceilings comes back unmodified with no marker.
func truncateHead(text string, maxLines, maxBytes int) (string, Truncation) {
	if maxLines <= 0 {
		maxLines = DefaultMaxOutputLines
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxOutputBytes
	}

	info := Truncation{
		OriginalLines: countLines(text),
		OriginalBytes: len(text),
	}
	if info.OriginalLines <= maxLines && info.OriginalBytes <= maxBytes {
		return text, Truncation{}
	}
	info.Truncated = true

	lines := strings.Split(text, "\n")
	kept := len(lines)
	if kept > maxLines {
		kept = maxLines
	}
	out := strings.Join(lines[:kept], "\n")

	// Byte ceiling applies after the line ceiling, cutting on a line
	// boundary so the marker is never glued to a half line. A single
	// oversized line is cut at the ceiling, backed up to a rune boundary.
	for len(out) > maxBytes {
		idx := strings.LastIndex(out, "\n")
		if idx < 0 {
			cut := maxBytes
			for cut > 0 && !utf8.RuneStart(out[cut]) {
				cut--
			}
			out = out[:cut]
			break
		}
		out = out[:idx]
	}

	return out + fmt.Sprintf(truncationMarker, countLines(out), info.OriginalLines), info
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}
