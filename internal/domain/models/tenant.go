package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tenant is the directory record for one school.
//
// Each school owns a dedicated MongoDB database (DatabaseName) holding its
// roster, academics, timetable and messaging collections. Tenants are never
// deleted; an administrator flips Status to "inactive" instead.
type Tenant struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"-"`

	// SchoolID is the stable public identifier (e.g. "SCHL00001").
	SchoolID string `bson:"school_id" json:"schoolId"`

	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"-"`

	DatabaseName string `bson:"database_name" json:"databaseName"`

	ContactEmail string `bson:"contact_email,omitempty" json:"contactEmail,omitempty"`
	Address      string `bson:"address,omitempty" json:"address,omitempty"`

	// Status: "active" or "inactive"
	Status string `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsActive reports whether the school accepts logins.
func (t Tenant) IsActive() bool {
	return t.Status == "active"
}
