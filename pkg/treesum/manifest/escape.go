package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadEscape is returned when an escaped name or target contains an
// unknown escape sequence or ends in a bare backslash.
var ErrBadEscape = errors.New("invalid escape sequence")

// NeedsEscape reports whether s must be written in escaped form.
// Only backslashes and newlines require escaping.
func NeedsEscape(s string) bool {
	return strings.ContainsAny(s, "\\\n")
}

// Escape returns s with each backslash doubled and each newline
// replaced by the two-character sequence backslash-n.
func Escape(s string) string {
	if !NeedsEscape(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Unescape reverses Escape. The only legal sequences are backslash-
// backslash and backslash-n; anything else, including a trailing bare
// backslash, is an error.
func Unescape(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return "", fmt.Errorf("%w: trailing backslash in %q", ErrBadEscape, s)
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		default:
			return "", fmt.Errorf("%w: \\%c in %q", ErrBadEscape, s[i], s)
		}
	}
	return b.String(), nil
}
