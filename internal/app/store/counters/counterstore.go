// Package counterstore issues sequential, human-readable identifiers
// (SCHL00001, TCH00042) backed by a "counters" collection. A global
// database holds the platform sequences; each school database holds its own
// roster sequences.
package counterstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sequence names and their identifier prefixes.
const (
	SeqSchool      = "school"
	SeqSuperAdmin  = "super_admin"
	SeqSchoolAdmin = "school_admin"
	SeqTeacher     = "teacher"
	SeqStudent     = "student"
	SeqParent      = "parent"
)

var prefixes = map[string]string{
	SeqSchool:      "SCHL",
	SeqSuperAdmin:  "SUP",
	SeqSchoolAdmin: "ADM",
	SeqTeacher:     "TCH",
	SeqStudent:     "STU",
	SeqParent:      "PAR",
}

// Width is the zero-padded digit count of a formatted identifier.
const Width = 5

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("counters")}
}

// Next atomically increments the named sequence and returns the new value.
// The first call for a sequence returns 1.
func (s *Store) Next(ctx context.Context, seq string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": seq},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

// NextID returns the next formatted identifier for seq.
func (s *Store) NextID(ctx context.Context, seq string) (string, error) {
	n, err := s.Next(ctx, seq)
	if err != nil {
		return "", err
	}
	return Format(seq, n), nil
}

// Format renders n with the sequence's prefix, e.g. Format(SeqSchool, 7) is
// "SCHL00007". Values wider than Width are not truncated.
func Format(seq string, n int64) string {
	return fmt.Sprintf("%s%0*d", prefixes[seq], Width, n)
}

// SeqForRole maps an account role to its sequence.
func SeqForRole(role string) (string, bool) {
	switch role {
	case "super_admin":
		return SeqSuperAdmin, true
	case "sch_admin":
		return SeqSchoolAdmin, true
	case "teacher":
		return SeqTeacher, true
	case "student":
		return SeqStudent, true
	case "parent":
		return SeqParent, true
	}
	return "", false
}
