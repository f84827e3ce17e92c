package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureGlobal and EnsureTenant are idempotent. Problems are aggregated so
every failing collection is reported at once.
*/

// EnsureGlobal reconciles the indexes of the platform database.
func EnsureGlobal(ctx context.Context, db *mongo.Database) error {
	return ensureAll(ctx, db, globalSpecs())
}

// EnsureTenant reconciles the indexes of one school database. Called at
// provisioning time and, for every known tenant, at startup.
func EnsureTenant(ctx context.Context, db *mongo.Database) error {
	return ensureAll(ctx, db, tenantSpecs())
}

type collectionSpec struct {
	name    string
	indexes []mongo.IndexModel
}

func ensureAll(ctx context.Context, db *mongo.Database, specs []collectionSpec) error {
	var problems []string
	for _, s := range specs {
		if err := ensureIndexSet(ctx, db.Collection(s.name), s.indexes); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func activeOnly() bson.M { return bson.M{"status": "active"} }

func globalSpecs() []collectionSpec {
	return []collectionSpec{
		{"tenants", []mongo.IndexModel{
			{Keys: bson.D{{Key: "school_id", Value: 1}}, Options: options.Index().SetName("uniq_tenants_school_id").SetUnique(true)},
			{Keys: bson.D{{Key: "name_ci", Value: 1}}, Options: options.Index().SetName("idx_tenants_name_ci")},
			{Keys: bson.D{{Key: "database_name", Value: 1}}, Options: options.Index().SetName("uniq_tenants_database_name").SetUnique(true)},
		}},
		{"email_registry", []mongo.IndexModel{
			{
				Keys: bson.D{{Key: "email", Value: 1}},
				Options: options.Index().
					SetName("uniq_registry_active_email").
					SetUnique(true).
					SetPartialFilterExpression(activeOnly()),
			},
			{Keys: bson.D{{Key: "school_id", Value: 1}, {Key: "role", Value: 1}}, Options: options.Index().SetName("idx_registry_school_role")},
			{Keys: bson.D{{Key: "account_id", Value: 1}}, Options: options.Index().SetName("idx_registry_account_id")},
		}},
		{"super_admins", accountIndexes("super_admins")},
		{"school_admins", append(accountIndexes("school_admins"),
			mongo.IndexModel{Keys: bson.D{{Key: "school_id", Value: 1}, {Key: "full_name_ci", Value: 1}}, Options: options.Index().SetName("idx_school_admins_school_name")},
		)},
	}
}

func tenantSpecs() []collectionSpec {
	return []collectionSpec{
		{"teachers", accountIndexes("teachers")},
		{"students", append(accountIndexes("students"),
			mongo.IndexModel{Keys: bson.D{{Key: "class_id", Value: 1}, {Key: "section_id", Value: 1}}, Options: options.Index().SetName("idx_students_class_section")},
		)},
		{"parents", accountIndexes("parents")},
		{"subjects", []mongo.IndexModel{
			{Keys: bson.D{{Key: "name_ci", Value: 1}}, Options: options.Index().SetName("uniq_subjects_name_ci").SetUnique(true)},
		}},
		{"classes", []mongo.IndexModel{
			{Keys: bson.D{{Key: "name_ci", Value: 1}}, Options: options.Index().SetName("uniq_classes_name_ci").SetUnique(true)},
		}},
		{"timetable_entries", []mongo.IndexModel{
			{Keys: bson.D{{Key: "day", Value: 1}, {Key: "teacher_id", Value: 1}}, Options: options.Index().SetName("idx_timetable_day_teacher")},
			{Keys: bson.D{{Key: "day", Value: 1}, {Key: "class_id", Value: 1}, {Key: "section_id", Value: 1}}, Options: options.Index().SetName("idx_timetable_day_class")},
		}},
		{"homework", []mongo.IndexModel{
			{Keys: bson.D{{Key: "class_id", Value: 1}, {Key: "due_date", Value: -1}}, Options: options.Index().SetName("idx_homework_class_due")},
		}},
		{"exams", []mongo.IndexModel{
			{Keys: bson.D{{Key: "class_id", Value: 1}, {Key: "date", Value: -1}}, Options: options.Index().SetName("idx_exams_class_date")},
		}},
		{"notifications", []mongo.IndexModel{
			{Keys: bson.D{{Key: "audience_roles", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("idx_notifications_audience_created")},
		}},
		{"announcements", []mongo.IndexModel{
			{Keys: bson.D{{Key: "published_at", Value: -1}}, Options: options.Index().SetName("idx_announcements_published")},
		}},
	}
}

// accountIndexes: one active account per e-mail, unique account ids, and a
// name index for listing.
func accountIndexes(coll string) []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("uniq_" + coll + "_active_email").
				SetUnique(true).
				SetPartialFilterExpression(activeOnly()),
		},
		{Keys: bson.D{{Key: "account_id", Value: 1}}, Options: options.Index().SetName("uniq_" + coll + "_account_id").SetUnique(true)},
		{Keys: bson.D{{Key: "full_name_ci", Value: 1}}, Options: options.Index().SetName("idx_" + coll + "_full_name_ci")},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  *bool  `bson:"unique,omitempty"`
	Partial bson.D `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// Namespace may not exist yet; CreateOne creates it.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		desiredName := ""
		var desiredUnique *bool
		desiredPartial := false
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
			desiredPartial = m.Options.PartialFilterExpression != nil
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			same := boolVal(ex.Unique) == boolVal(desiredUnique) &&
				(len(ex.Partial) > 0) == desiredPartial &&
				(desiredName == "" || ex.Name == desiredName)
			if same {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name))
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), ex.Name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && boolVal(desiredUnique) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			}
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", sig),
			zap.Bool("unique", boolVal(desiredUnique)),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
