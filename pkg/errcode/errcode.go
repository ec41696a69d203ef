package errcode

import (
	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError

	// Logging errors
	CreateLogFileError

	// Database errors
	DBConnectionError
	DBTableCheckError
	DBEmptyDatabaseError
	DBNotConnectedError
	DBTableExistsCheckError

	// Schema errors
	SchemaGORMConnectionError
	SchemaCreateError
	SchemaMigrateError
	SchemaTablesExistError

	// Provider errors
	ProviderAPIKeyError
	ProviderTransientError
	ProviderRateLimitError
	ProviderSchemaError
	ProviderResponseError

	// Store errors
	StoreLoadError
	StoreInsertError
	StoreUpdateError
	StoreConstraintError

	// Build errors
	BuildCatalogError
	BuildSelectionError
	BuildInterruptedError
	BuildAllMakesFailedError

	// Gap filler errors
	GapsScanError
	GapsEnrichError

	// Import errors
	ImportReadError
	ImportFormatError

	// Export errors
	ExportCreateError
	ExportWriteError
)
