package lifecycle

import (
	"context"
)

// SchemaManager defines the interface for database schema management.
// It uses GORM AutoMigrate for both initial creation and upgrades.
// Schema management is idempotent and safe to run repeatedly.
type SchemaManager interface {
	// Create creates the database schema. When tables already
	// exist the force flag decides whether they are dropped and
	// rebuilt or the call fails.
	Create(ctx context.Context, force bool) error

	// Migrate updates an existing schema to the latest shape
	// without dropping data.
	Migrate(ctx context.Context) error
}
