package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureGlobal creates the platform collections and attaches JSON-Schema
// validators. Servers without collMod/validator support (some DocumentDB
// versions) are logged and skipped.
func EnsureGlobal(ctx context.Context, db *mongo.Database) error {
	return ensureAll(ctx, db, map[string]bson.M{
		"tenants":        tenantsSchema(),
		"email_registry": registrySchema(),
		"super_admins":   accountSchema(),
		"school_admins":  accountSchema(),
		"counters":       nil,
		"audit_events":   nil,
	})
}

// EnsureTenant does the same for one school database.
func EnsureTenant(ctx context.Context, db *mongo.Database) error {
	return ensureAll(ctx, db, map[string]bson.M{
		"teachers":          accountSchema(),
		"students":          accountSchema(),
		"parents":           accountSchema(),
		"subjects":          namedSchema(),
		"classes":           namedSchema(),
		"timetable_entries": timetableSchema(),
		"homework":          nil,
		"exams":             nil,
		"notifications":     nil,
		"announcements":     nil,
		"counters":          nil,
	})
}

func ensureAll(ctx context.Context, db *mongo.Database, colls map[string]bson.M) error {
	var problems []string
	for coll, schema := range colls {
		if err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			continue
		}
		if schema == nil {
			continue
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				continue
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return nil
		}
		return err
	}
	zap.L().Info("created collection", zap.String("db", db.Name()), zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

/* ------------------------- error helpers ------------------------- */

func commandErr(err error, code int32, fragments ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErr(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandErr(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandErr(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func statusEnum() bson.M { return bson.M{"enum": bson.A{"active", "inactive"}} }

func tenantsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"school_id", "name", "database_name", "status"},
			"properties": bson.M{
				"school_id":     bson.M{"bsonType": "string", "pattern": "^SCHL[0-9]{5,}$"},
				"name":          nonBlank,
				"database_name": nonBlank,
				"status":        statusEnum(),
			},
		},
	}
}

func registrySchema() bson.M {
	roles := bson.A{}
	for _, r := range models.AllRoles {
		roles = append(roles, r)
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "role", "account_id", "status"},
			"properties": bson.M{
				"email":      nonBlank,
				"role":       bson.M{"enum": roles},
				"account_id": nonBlank,
				"status":     statusEnum(),
			},
		},
	}
}

func accountSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"account_id", "email", "password_hash"},
			"properties": bson.M{
				"account_id":    nonBlank,
				"email":         nonBlank,
				"password_hash": nonBlank,
				"status":        statusEnum(),
			},
		},
	}
}

func namedSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci"},
			"properties": bson.M{
				"name":    nonBlank,
				"name_ci": nonBlank,
			},
		},
	}
}

func timetableSchema() bson.M {
	days := bson.A{}
	for _, d := range models.Weekdays {
		days = append(days, d)
	}
	hhmm := bson.M{"bsonType": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"class_id", "teacher_id", "day", "start", "end"},
			"properties": bson.M{
				"day":   bson.M{"enum": days},
				"start": hhmm,
				"end":   hhmm,
			},
		},
	}
}
