package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is a short message addressed to roles and/or specific accounts.
type Notification struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Message       string             `bson:"message" json:"message"`
	AudienceRoles []string           `bson:"audience_roles,omitempty" json:"audienceRoles,omitempty"`
	RecipientIDs  []string           `bson:"recipient_ids,omitempty" json:"recipientIds,omitempty"`
	ReadBy        []string           `bson:"read_by,omitempty" json:"-"`
	CreatedBy     string             `bson:"created_by" json:"createdBy"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
}

// Announcement is a school-wide post. Body holds sanitized HTML.
type Announcement struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Body          string             `bson:"body" json:"body"`
	AudienceRoles []string           `bson:"audience_roles,omitempty" json:"audienceRoles,omitempty"`
	PublishedAt   time.Time          `bson:"published_at" json:"publishedAt"`
	CreatedBy     string             `bson:"created_by" json:"createdBy"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}
