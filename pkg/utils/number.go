package utils

import (
	"strconv"
	"strings"
)

// separators lists the thousand-separator variants found in published result pages:
// ordinary space, no-break space, narrow no-break space and comma.
var separators = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", "")

// StripSeparators removes every thousand-separator variant from s.
func StripSeparators(s string) string {
	return separators.Replace(s)
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseInt converts a locale-formatted integer such as "1 234" or "-1 000"
// into an int. Anything that is not an optionally signed run of digits once the
// separators are removed yields def; the function never fails.
func ParseInt(raw string, def int) int {
	s := StripSeparators(strings.TrimSpace(raw))
	if s == "" {
		return def
	}

	body := s
	if s[0] == '+' || s[0] == '-' {
		body = s[1:]
	}
	if !IsDigits(body) {
		return def
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		// out of range for int
		return def
	}
	return n
}
