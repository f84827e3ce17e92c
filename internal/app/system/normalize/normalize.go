// Package normalize canonicalizes user-supplied strings before they are
// stored or compared.
package normalize

import "strings"

// Email trims whitespace and lowercases. Login e-mails are always compared
// in this form.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims whitespace and preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role trims and lowercases a role name.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status trims and lowercases a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SchoolID trims and uppercases a school identifier ("schl00001" → "SCHL00001").
func SchoolID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// QueryParam trims a query string value, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// AccountID trims and uppercases an account identifier ("tch00001" → "TCH00001").
func AccountID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
