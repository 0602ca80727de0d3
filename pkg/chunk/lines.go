package chunk

import "strings"

// normalizeNewlines converts CRLF to LF so line numbers computed from byte
// offsets are stable across platforms, per spec §4.2.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r\n") {
		return s
	}
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// lineAt returns the 1-indexed line number containing byte offset pos in
// normalized (LF-only) content s.
func lineAt(s string, pos int) int {
	if pos > len(s) {
		pos = len(s)
	}
	if pos < 0 {
		pos = 0
	}
	return 1 + strings.Count(s[:pos], "\n")
}
