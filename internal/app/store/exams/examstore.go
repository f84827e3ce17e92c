package examstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("exam not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("exams")}
}

func (s *Store) Create(ctx context.Context, e models.Exam) (models.Exam, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Exam{}, err
	}
	return e, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Exam, error) {
	var e models.Exam
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Exam{}, ErrNotFound
	}
	return e, err
}

// List returns exams, newest first. Empty classID or subjectID match all.
func (s *Store) List(ctx context.Context, classID, subjectID string) ([]models.Exam, error) {
	q := bson.M{}
	if classID != "" {
		q["class_id"] = classID
	}
	if subjectID != "" {
		q["subject_id"] = subjectID
	}
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Exam{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update changes name, date and max marks. Zero values are left alone.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, e models.Exam) (models.Exam, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if e.Name != "" {
		set["name"] = e.Name
	}
	if !e.Date.IsZero() {
		set["date"] = e.Date
	}
	if e.MaxMarks > 0 {
		set["max_marks"] = e.MaxMarks
	}
	return s.apply(ctx, id, set)
}

// SetResults replaces the result list.
func (s *Store) SetResults(ctx context.Context, id primitive.ObjectID, results []models.ExamResult) (models.Exam, error) {
	if results == nil {
		results = []models.ExamResult{}
	}
	return s.apply(ctx, id, bson.M{"results": results, "updated_at": time.Now().UTC()})
}

func (s *Store) apply(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Exam, error) {
	var out models.Exam
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Exam{}, ErrNotFound
	}
	return out, err
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

// ResultsFor returns only the results belonging to the given students.
func ResultsFor(e models.Exam, studentIDs ...string) []models.ExamResult {
	want := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		want[id] = true
	}
	out := []models.ExamResult{}
	for _, r := range e.Results {
		if want[r.StudentID] {
			out = append(out, r)
		}
	}
	return out
}
