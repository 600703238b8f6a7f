package validator

import "unicode/utf8"

// RedactionMarker replaces the interior of masked secrets.
const RedactionMarker = "****"

const (
	maskKeep      = 3
	maskMinLength = 8
	snippetMax    = 80
)

// Mask hides a secret literal, keeping three characters at each end.
// Literals shorter than eight characters are replaced by the marker alone.
func Mask(s string) string {
	if utf8.RuneCountInString(s) < maskMinLength {
		return RedactionMarker
	}
	r := []rune(s)
	return string(r[:maskKeep]) + RedactionMarker + string(r[len(r)-maskKeep:])
}

// snippet truncates non-secret match text for reporting.
func snippet(s string) string {
	if utf8.RuneCountInString(s) <= snippetMax {
		return s
	}
	return string([]rune(s)[:snippetMax]) + "..."
}
