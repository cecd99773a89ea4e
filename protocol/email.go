package protocol

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail returns the form of an email address the log indexes
// by: NFKC normalized, lower case, with dots, dashes and underscores
// removed from the local part.
func NormalizeEmail(email string) string {
	email = strings.ToLower(norm.NFKC.String(email))
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return stripSeparators(email)
	}
	return stripSeparators(email[:at]) + email[at:]
}

func stripSeparators(local string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', '_':
			return -1
		}
		return r
	}, local)
}
