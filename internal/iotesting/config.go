// Package iotesting provides shared test utilities for integration
// tests. This is an internal package for test infrastructure only.
package iotesting

import (
	"os"
	"strconv"

	"github.com/Aariz1001/carpulse-data/pkg/config"
)

// TestDatabaseName is the database name used for all integration
// tests, so tests never run against a production database.
const TestDatabaseName = "carpulse_test"

// GetTestConfig returns a configuration suitable for integration
// tests. Connection settings come from CARPULSE_DB_* environment
// variables when present, with the database name always forced to
// TestDatabaseName.
//
// Usage in integration tests:
//
//	func TestSomething(t *testing.T) {
//	    if testing.Short() {
//	        t.Skip("Skipping integration test")
//	    }
//	    cfg := iotesting.GetTestConfig()
//	    // ... use cfg for database operations
//	}
func GetTestConfig() *config.Config {
	cfg := config.New()

	var opts []config.Option
	if v := os.Getenv("CARPULSE_DB_HOST"); v != "" {
		opts = append(opts, config.OptDatabaseHost(v))
	}
	if v := os.Getenv("CARPULSE_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			opts = append(opts, config.OptDatabasePort(port))
		}
	}
	if v := os.Getenv("CARPULSE_DB_USER"); v != "" {
		opts = append(opts, config.OptDatabaseUser(v))
	}
	if v := os.Getenv("CARPULSE_DB_PASSWORD"); v != "" {
		opts = append(opts, config.OptDatabasePassword(v))
	}
	cfg.Update(opts)

	cfg.Database.Database = TestDatabaseName
	return cfg
}

// GetTestDatabaseConfig returns only the database configuration.
func GetTestDatabaseConfig() config.DatabaseConfig {
	return GetTestConfig().Database
}
