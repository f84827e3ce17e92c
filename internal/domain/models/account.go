package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is the stored shape of every login-capable identity.
//
// Which collection holds a document depends on Role:
//   - super_admin → global "super_admins"
//   - sch_admin   → global "school_admins" (SchoolID set)
//   - teacher, student, parent → "teachers", "students", "parents" in the
//     school's own database
//
// Role-specific fields are omitted from documents of other roles.
type Account struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AccountID    string             `bson:"account_id" json:"accountId"`
	Role         string             `bson:"role" json:"role"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	FirstName    string             `bson:"first_name" json:"firstName"`
	LastName     string             `bson:"last_name" json:"lastName"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"` // folded "first last" for search
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Status       string             `bson:"status,omitempty" json:"status,omitempty"`

	// School admins only (tenant accounts are scoped by database instead).
	SchoolID string `bson:"school_id,omitempty" json:"schoolId,omitempty"`

	// Teacher
	SubjectIDs []string `bson:"subjects,omitempty" json:"subjects,omitempty"`
	ClassIDs   []string `bson:"classes,omitempty" json:"classes,omitempty"`

	// Student
	ClassID    string `bson:"class_id,omitempty" json:"classId,omitempty"`
	SectionID  string `bson:"section_id,omitempty" json:"sectionId,omitempty"`
	RollNumber string `bson:"roll_number,omitempty" json:"rollNumber,omitempty"`
	ParentID   string `bson:"parent_id,omitempty" json:"parentId,omitempty"`

	// Parent
	StudentIDs []string `bson:"student_ids,omitempty" json:"studentIds,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// FullName joins first and last name.
func (a Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}
