// Package identity holds the handle and identifier rules used to match member
// records coming from different platforms.
package identity

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	invalidHandleChars = regexp.MustCompile(`[^a-z0-9_]`)
	repeatedUnderscore = regexp.MustCompile(`_+`)
	platformIDPattern  = regexp.MustCompile(`^[0-9]{17,20}$`)
)

// NormalizeHandle folds a free-text handle into its matching form: lowercase,
// every character outside [a-z0-9_] replaced by "_", runs of "_" collapsed and
// leading/trailing "_" trimmed. Two handles match when their normalized forms
// are equal and non-empty.
//
// Input is NFC-composed first so that an accented letter always produces a
// single "_" whatever encoding the export used.
func NormalizeHandle(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.ToLower(norm.NFC.String(s))
	s = invalidHandleChars.ReplaceAllString(s, "_")
	s = repeatedUnderscore.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// IsValidPlatformID reports whether value is a 17 to 20 digit decimal string.
// The check is purely syntactic.
func IsValidPlatformID(value string) bool {
	return platformIDPattern.MatchString(value)
}

// NormalizeLogin returns the canonical form of a primary login.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
