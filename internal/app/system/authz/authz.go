// Package authz holds the role groups used by the routers and the checks
// that go beyond a plain role whitelist.
package authz

import (
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/domain/models"
)

// Role groups for route whitelists.
var (
	// PlatformAdmins manage tenants and school admins.
	PlatformAdmins = []string{models.RoleSuperAdmin}

	// SchoolAdmins manage a school's roster and academics.
	SchoolAdmins = []string{models.RoleSuperAdmin, models.RoleSchoolAdmin}

	// Staff set homework and exams and post notices.
	Staff = []string{models.RoleSuperAdmin, models.RoleSchoolAdmin, models.RoleTeacher}

	// SchoolMembers may read a school's shared data.
	SchoolMembers = []string{
		models.RoleSuperAdmin,
		models.RoleSchoolAdmin,
		models.RoleTeacher,
		models.RoleStudent,
		models.RoleParent,
	}
)

// CanEnterSchool reports whether c may act inside schoolID. Super admins
// may enter any school; everyone else only their own.
func CanEnterSchool(c *auth.Claims, schoolID string) bool {
	if c == nil || schoolID == "" {
		return false
	}
	if c.Role == models.RoleSuperAdmin {
		return true
	}
	return c.SchoolID == schoolID
}

// IsStaff reports whether c belongs to Staff.
func IsStaff(c *auth.Claims) bool {
	return c != nil && auth.Authorize(c, Staff...) == nil
}

// CanViewStudent reports whether c may read the record of studentID
// without a database lookup. Staff may read any student in their school
// and a student only their own record. Parents always get false here:
// their links live in the parent record (see learner.Linked).
func CanViewStudent(c *auth.Claims, studentID string) bool {
	if c == nil {
		return false
	}
	switch c.Role {
	case models.RoleStudent:
		return c.AccountID == studentID
	case models.RoleParent:
		return false
	}
	return IsStaff(c)
}
