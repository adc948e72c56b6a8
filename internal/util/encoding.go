package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail canonicalizes an email address before it is handed to the
// authority: NFKC so visually identical input from different platforms
// compares equal, then trimmed and lowercased. The authority matches
// accounts by exact string, so both sign-up and sign-in must go through
// this.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// NormalizeSecret applies NFKC to a user-supplied secret. Case and
// whitespace are preserved; only composition differences are folded.
func NormalizeSecret(s string) string {
	return norm.NFKC.String(s)
}
