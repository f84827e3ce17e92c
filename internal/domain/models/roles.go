package models

// Roles recognised by the e-mail registry and carried in session tokens.
const (
	RoleSuperAdmin  = "super_admin"
	RoleSchoolAdmin = "sch_admin"
	RoleTeacher     = "teacher"
	RoleStudent     = "student"
	RoleParent      = "parent"
)

// AllRoles lists every role in privilege order.
var AllRoles = []string{RoleSuperAdmin, RoleSchoolAdmin, RoleTeacher, RoleStudent, RoleParent}

// TenantRoles are the roles whose accounts live inside a school's own database.
var TenantRoles = []string{RoleTeacher, RoleStudent, RoleParent}

// IsTenantRole reports whether accounts of the given role are stored per school.
func IsTenantRole(role string) bool {
	switch role {
	case RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// IsValidRole reports whether role is one of AllRoles.
func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
