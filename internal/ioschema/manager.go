// Package ioschema implements the SchemaManager interface for
// database schema management. This is an impure I/O package that
// wraps GORM AutoMigrate functionality.
package ioschema

import (
	"context"

	"github.com/Aariz1001/carpulse-data/pkg/db"
	"github.com/Aariz1001/carpulse-data/pkg/lifecycle"
	"github.com/Aariz1001/carpulse-data/pkg/schema"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// manager implements the lifecycle.SchemaManager interface using
// GORM AutoMigrate.
type manager struct {
	operator db.Operator
}

// NewManager creates a new SchemaManager.
func NewManager(op db.Operator) lifecycle.SchemaManager {
	return &manager{operator: op}
}

// Create creates the database schema using GORM AutoMigrate. When
// tables already exist the force flag decides whether they are
// dropped and rebuilt or the call fails.
func (m *manager) Create(ctx context.Context, force bool) error {
	gormDB, err := m.gormDB()
	if err != nil {
		return err
	}

	hasTables, err := m.operator.HasTables(ctx)
	if err != nil {
		return err
	}

	if hasTables {
		if !force {
			return TablesExistError()
		}
		if err := dropAll(gormDB); err != nil {
			return CreateSchemaError(err)
		}
	}

	if err := schema.Migrate(gormDB); err != nil {
		return CreateSchemaError(err)
	}

	return nil
}

// Migrate updates the database schema to the latest shape using
// GORM AutoMigrate without dropping data.
func (m *manager) Migrate(ctx context.Context) error {
	gormDB, err := m.gormDB()
	if err != nil {
		return err
	}

	if err := schema.Migrate(gormDB); err != nil {
		return MigrateSchemaError(err)
	}

	return nil
}

// gormDB opens a GORM session on top of the pgx pool.
func (m *manager) gormDB() (*gorm.DB, error) {
	pool := m.operator.Pool()
	if pool == nil {
		return nil, NotConnectedError()
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{Conn: sqlDB}),
		&gorm.Config{},
	)
	if err != nil {
		return nil, GORMConnectionError(err)
	}
	return gormDB, nil
}

// dropAll removes every managed table, children first so foreign
// keys do not block the drops.
func dropAll(gormDB *gorm.DB) error {
	models := schema.AllModels()
	for i := len(models) - 1; i >= 0; i-- {
		if err := gormDB.Migrator().DropTable(models[i]); err != nil {
			return err
		}
	}
	return nil
}
