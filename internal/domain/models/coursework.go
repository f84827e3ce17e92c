package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Homework is an assignment set for a class (optionally one section).
type Homework struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClassID     string             `bson:"class_id" json:"classId"`
	SectionID   string             `bson:"section_id,omitempty" json:"sectionId,omitempty"`
	SubjectID   string             `bson:"subject_id" json:"subjectId"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	DueDate     time.Time          `bson:"due_date" json:"dueDate"`
	CreatedBy   string             `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// ExamResult is one student's mark for an exam.
type ExamResult struct {
	StudentID string  `bson:"student_id" json:"studentId"`
	Marks     float64 `bson:"marks" json:"marks"`
	Remarks   string  `bson:"remarks,omitempty" json:"remarks,omitempty"`
}

// Exam is a scheduled assessment with its recorded results.
type Exam struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	ClassID   string             `bson:"class_id" json:"classId"`
	SubjectID string             `bson:"subject_id" json:"subjectId"`
	Date      time.Time          `bson:"date" json:"date"`
	MaxMarks  float64            `bson:"max_marks" json:"maxMarks"`
	Results   []ExamResult       `bson:"results,omitempty" json:"results,omitempty"`
	CreatedBy string             `bson:"created_by" json:"createdBy"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}
