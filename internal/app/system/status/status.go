// Package status holds the lifecycle states shared by tenants, registry
// entries and accounts.
package status

const (
	Active   = "active"
	Inactive = "inactive"
)

// IsValid reports whether s is a known status.
func IsValid(s string) bool {
	return s == Active || s == Inactive
}
