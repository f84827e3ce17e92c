package indexes_test

import (
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/system/indexes"
	"github.com/dalemusser/schoolhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEnsureGlobal_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureGlobal(ctx, db); err != nil {
		t.Fatalf("first EnsureGlobal failed: %v", err)
	}
	if err := indexes.EnsureGlobal(ctx, db); err != nil {
		t.Fatalf("second EnsureGlobal failed: %v", err)
	}
}

func TestEnsureGlobal_RegistryAllowsInactiveDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureGlobal(ctx, db); err != nil {
		t.Fatalf("EnsureGlobal failed: %v", err)
	}
	c := db.Collection("email_registry")

	if _, err := c.InsertOne(ctx, bson.M{"email": "a@school.com", "status": "inactive"}); err != nil {
		t.Fatalf("insert inactive: %v", err)
	}
	if _, err := c.InsertOne(ctx, bson.M{"email": "a@school.com", "status": "inactive"}); err != nil {
		t.Fatalf("second inactive entry should be allowed: %v", err)
	}
	if _, err := c.InsertOne(ctx, bson.M{"email": "a@school.com", "status": "active"}); err != nil {
		t.Fatalf("insert active: %v", err)
	}
	if _, err := c.InsertOne(ctx, bson.M{"email": "a@school.com", "status": "active"}); err == nil {
		t.Fatal("expected duplicate active entry to be rejected")
	}
}

func TestEnsureTenant_CreatesAccountIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureTenant(ctx, db); err != nil {
		t.Fatalf("EnsureTenant failed: %v", err)
	}

	cur, err := db.Collection("teachers").Indexes().List(ctx)
	if err != nil {
		t.Fatalf("list indexes: %v", err)
	}
	var idx []bson.M
	if err := cur.All(ctx, &idx); err != nil {
		t.Fatalf("decode indexes: %v", err)
	}
	found := map[string]bool{}
	for _, i := range idx {
		if name, ok := i["name"].(string); ok {
			found[name] = true
		}
	}
	for _, want := range []string{"uniq_teachers_active_email", "uniq_teachers_account_id"} {
		if !found[want] {
			t.Errorf("missing index %s", want)
		}
	}
}
