package timetablestore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("timetable entry not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("timetable_entries")}
}

func (s *Store) Create(ctx context.Context, e models.TimetableEntry) (models.TimetableEntry, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.TimetableEntry{}, err
	}
	return e, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.TimetableEntry, error) {
	var e models.TimetableEntry
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.TimetableEntry{}, ErrNotFound
	}
	return e, err
}

// Filter narrows List. Zero fields are ignored.
type Filter struct {
	Day       string
	ClassID   string
	SectionID string
	TeacherID string
}

// List returns entries ordered by week day, then start time.
func (s *Store) List(ctx context.Context, f Filter) ([]models.TimetableEntry, error) {
	q := bson.M{}
	if f.Day != "" {
		q["day"] = f.Day
	}
	if f.ClassID != "" {
		q["class_id"] = f.ClassID
	}
	if f.SectionID != "" {
		// Whole-class entries apply to every section.
		q["section_id"] = bson.M{"$in": bson.A{f.SectionID, "", nil}}
	}
	if f.TeacherID != "" {
		q["teacher_id"] = f.TeacherID
	}
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.TimetableEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	SortByWeek(out)
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

/* ---------------------------- conflicts ---------------------------- */

// Conflict reasons.
const (
	ReasonTeacher = "teacher"
	ReasonClass   = "class"
	ReasonRoom    = "room"
)

// Conflict is a pair of entries that cannot both hold.
type Conflict struct {
	Reason string                `json:"reason"`
	A      models.TimetableEntry `json:"a"`
	B      models.TimetableEntry `json:"b"`
}

// Overlaps reports whether two entries share a day and their [Start, End)
// intervals intersect. "HH:MM" strings order correctly as text.
func Overlaps(a, b models.TimetableEntry) bool {
	return a.Day == b.Day && a.Start < b.End && b.Start < a.End
}

// sameClassSlot: a whole-class entry (empty section) collides with every
// section of that class.
func sameClassSlot(a, b models.TimetableEntry) bool {
	if a.ClassID != b.ClassID {
		return false
	}
	return a.SectionID == "" || b.SectionID == "" || a.SectionID == b.SectionID
}

// reasons lists why a and b conflict; empty when they don't.
func reasons(a, b models.TimetableEntry) []string {
	if !Overlaps(a, b) {
		return nil
	}
	var out []string
	if a.TeacherID != "" && a.TeacherID == b.TeacherID {
		out = append(out, ReasonTeacher)
	}
	if sameClassSlot(a, b) {
		out = append(out, ReasonClass)
	}
	if a.Room != "" && a.Room == b.Room {
		out = append(out, ReasonRoom)
	}
	return out
}

// ConflictsWith returns the conflicts candidate would introduce against
// existing. Entries sharing candidate's ID are ignored.
func ConflictsWith(candidate models.TimetableEntry, existing []models.TimetableEntry) []Conflict {
	var out []Conflict
	for _, e := range existing {
		if !candidate.ID.IsZero() && e.ID == candidate.ID {
			continue
		}
		for _, r := range reasons(candidate, e) {
			out = append(out, Conflict{Reason: r, A: candidate, B: e})
		}
	}
	return out
}

// FindConflicts reports every conflicting pair in entries once.
func FindConflicts(entries []models.TimetableEntry) []Conflict {
	out := []Conflict{}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			for _, r := range reasons(entries[i], entries[j]) {
				out = append(out, Conflict{Reason: r, A: entries[i], B: entries[j]})
			}
		}
	}
	return out
}

var dayIndex = func() map[string]int {
	m := make(map[string]int, len(models.Weekdays))
	for i, d := range models.Weekdays {
		m[d] = i
	}
	return m
}()

// SortByWeek orders entries mon..sun, then by start time.
func SortByWeek(entries []models.TimetableEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := dayIndex[entries[i].Day], dayIndex[entries[j].Day]
		if di != dj {
			return di < dj
		}
		return entries[i].Start < entries[j].Start
	})
}
