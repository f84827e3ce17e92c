package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTestURI = "mongodb://localhost:27017"

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error

	dbSeq atomic.Int64
)

// TestContext returns a context suitable for a single test's database work.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SetupTestClient returns a process-wide client for the test MongoDB
// (SCHOOLHUB_TEST_MONGO_URI, or localhost). The test is skipped when the
// server cannot be reached.
func SetupTestClient(t *testing.T) *mongo.Client {
	t.Helper()

	clientOnce.Do(func() {
		uri := os.Getenv("SCHOOLHUB_TEST_MONGO_URI")
		if uri == "" {
			uri = defaultTestURI
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		c, err := mongo.Connect(ctx, options.Client().
			ApplyURI(uri).
			SetServerSelectionTimeout(2*time.Second))
		if err != nil {
			clientErr = err
			return
		}
		if err := c.Ping(ctx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			clientErr = err
			return
		}
		client = c
	})

	if clientErr != nil {
		t.Skipf("MongoDB not available: %v", clientErr)
	}
	return client
}

// NewTestDatabase returns a uniquely named database on c that is dropped
// when the test finishes.
func NewTestDatabase(t *testing.T, c *mongo.Client) *mongo.Database {
	t.Helper()

	name := fmt.Sprintf("schoolhub_test_%d_%d", time.Now().UnixNano(), dbSeq.Add(1))
	db := c.Database(name)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
	})
	return db
}

// SetupTestDB returns a fresh database for one test.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	return NewTestDatabase(t, SetupTestClient(t))
}
