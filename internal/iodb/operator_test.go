package iodb_test

import (
	"context"
	"testing"

	"github.com/Aariz1001/carpulse-data/internal/iodb"
	"github.com/Aariz1001/carpulse-data/internal/iotesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: These are integration tests that require PostgreSQL.
//
// Connection settings come from CARPULSE_DB_* environment variables,
// the database name is always forced to "carpulse_test" for safety.
//
// Run PostgreSQL locally with:
//   docker run -d --name carpulse-test \
//     -e POSTGRES_PASSWORD=postgres -p 5432:5432 postgres:15
//
// Skip these tests with: go test -short

func TestPgxOperator_Connect(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	op := iodb.New(iotesting.GetTestDatabaseConfig())
	ctx := context.Background()

	err := op.Connect(ctx)
	require.NoError(t, err, "Connect should succeed with valid config")
	defer op.Close()

	exists, err := op.TableExists(ctx, "nonexistent_table")
	assert.NoError(t, err,
		"Should be able to execute commands after Connect")
	assert.False(t, exists)
}

func TestPgxOperator_Connect_InvalidHost(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := iotesting.GetTestDatabaseConfig()
	cfg.Host = "invalid-host-that-does-not-exist"

	op := iodb.New(cfg)
	err := op.Connect(context.Background())
	assert.Error(t, err, "Connect should fail with invalid host")
}

func TestPgxOperator_NotConnected(t *testing.T) {
	op := iodb.New(iotesting.GetTestDatabaseConfig())
	ctx := context.Background()

	_, err := op.TableExists(ctx, "makes")
	assert.Error(t, err, "TableExists should fail before Connect")

	_, err = op.HasTables(ctx)
	assert.Error(t, err, "HasTables should fail before Connect")

	// Close without Connect must not panic.
	assert.NotPanics(t, func() { op.Close() })
}

func TestPgxOperator_HasTables(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	op := iodb.New(iotesting.GetTestDatabaseConfig())
	ctx := context.Background()

	require.NoError(t, op.Connect(ctx))
	defer op.Close()

	_, err := op.HasTables(ctx)
	assert.NoError(t, err)
}
