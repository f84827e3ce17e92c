package authz

import (
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/domain/models"
)

func TestCanEnterSchool(t *testing.T) {
	tests := []struct {
		name   string
		claims *auth.Claims
		school string
		want   bool
	}{
		{"super admin any school", &auth.Claims{Role: models.RoleSuperAdmin}, "SCHL00002", true},
		{"own school", &auth.Claims{Role: models.RoleTeacher, SchoolID: "SCHL00001"}, "SCHL00001", true},
		{"other school", &auth.Claims{Role: models.RoleSchoolAdmin, SchoolID: "SCHL00001"}, "SCHL00002", false},
		{"empty school", &auth.Claims{Role: models.RoleSuperAdmin}, "", false},
		{"no claims", nil, "SCHL00001", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanEnterSchool(tt.claims, tt.school); got != tt.want {
				t.Errorf("CanEnterSchool = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanViewStudent(t *testing.T) {
	parent := &auth.Claims{Role: models.RoleParent, StudentIDs: []string{"STU00001", "STU00002"}}
	student := &auth.Claims{Role: models.RoleStudent, AccountID: "STU00001"}
	teacher := &auth.Claims{Role: models.RoleTeacher}

	if CanViewStudent(parent, "STU00002") {
		t.Error("token child list must not grant access")
	}
	if !CanViewStudent(student, "STU00001") || CanViewStudent(student, "STU00002") {
		t.Error("student should see only themselves")
	}
	if !CanViewStudent(teacher, "STU00009") {
		t.Error("staff should see any student")
	}
	if CanViewStudent(nil, "STU00001") {
		t.Error("nil claims must be refused")
	}
}

func TestGroupsAreNested(t *testing.T) {
	in := func(set []string, role string) bool {
		for _, r := range set {
			if r == role {
				return true
			}
		}
		return false
	}
	for _, r := range PlatformAdmins {
		if !in(SchoolAdmins, r) {
			t.Errorf("%s missing from SchoolAdmins", r)
		}
	}
	for _, r := range SchoolAdmins {
		if !in(Staff, r) {
			t.Errorf("%s missing from Staff", r)
		}
	}
	for _, r := range Staff {
		if !in(SchoolMembers, r) {
			t.Errorf("%s missing from SchoolMembers", r)
		}
	}
}
