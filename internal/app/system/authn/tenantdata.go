package authn

import (
	"context"

	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	classstore "github.com/dalemusser/schoolhub/internal/app/store/classes"
	subjectstore "github.com/dalemusser/schoolhub/internal/app/store/subjects"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// Handles yields the database handle for a tenant database name.
type Handles interface {
	Handle(databaseName string) (*mongo.Database, error)
}

// PoolData is the TenantData backed by the tenant connection pool.
type PoolData struct {
	pool Handles
}

func NewPoolData(pool Handles) *PoolData {
	return &PoolData{pool: pool}
}

func (d *PoolData) FindAccount(ctx context.Context, databaseName, role, email string) (models.Account, error) {
	db, err := d.pool.Handle(databaseName)
	if err != nil {
		return models.Account{}, err
	}
	return accountstore.New(db, role).FindByEmail(ctx, email)
}

func (d *PoolData) SubjectNames(ctx context.Context, databaseName string, subjectIDs []string) ([]string, error) {
	db, err := d.pool.Handle(databaseName)
	if err != nil {
		return nil, err
	}
	return subjectstore.New(db).NamesByIDs(ctx, subjectIDs)
}

func (d *PoolData) Class(ctx context.Context, databaseName, classID string) (models.Class, error) {
	db, err := d.pool.Handle(databaseName)
	if err != nil {
		return models.Class{}, err
	}
	return classstore.New(db).GetByHex(ctx, classID)
}
