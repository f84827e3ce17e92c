package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegistryEntry maps a login e-mail to the role and school whose collection
// holds the account. At most one active entry exists per normalized e-mail.
type RegistryEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Email     string             `bson:"email" json:"email"`
	Role      string             `bson:"role" json:"role"`
	SchoolID  string             `bson:"school_id,omitempty" json:"schoolId,omitempty"` // empty for super_admin
	AccountID string             `bson:"account_id" json:"accountId"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}
