package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Weekdays accepted in timetable entries, in week order.
var Weekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// TimetableEntry is one weekly period: a subject taught to a class section by
// a teacher in a room. Start and End are "HH:MM" in school-local time.
type TimetableEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClassID   string             `bson:"class_id" json:"classId"`
	SectionID string             `bson:"section_id,omitempty" json:"sectionId,omitempty"`
	SubjectID string             `bson:"subject_id" json:"subjectId"`
	TeacherID string             `bson:"teacher_id" json:"teacherId"`
	Day       string             `bson:"day" json:"day"`
	Start     string             `bson:"start" json:"start"`
	End       string             `bson:"end" json:"end"`
	Room      string             `bson:"room,omitempty" json:"room,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}
