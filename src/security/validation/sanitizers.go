package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var tickerPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-=]{0,19}$`)

// NormalizeSymbol trims and uppercases a ticker. Symbols are compared case-insensitively everywhere.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsTicker reports whether s, once normalized, looks like an exchange ticker (AAPL, BRK.B, ^GSPC, EURUSD=X).
func IsTicker(s string) bool {
	return tickerPattern.MatchString(NormalizeSymbol(s))
}

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

// CleanName strips control characters and surrounding spaces from a display name.
func CleanName(s string) string {
	return strings.TrimSpace(StripUnprintable(s))
}
