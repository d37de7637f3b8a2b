package schema

// Custom string types for type safety.
type (
	// OutputFormat represents the rendering format for query results.
	OutputFormat string

	// DatabaseBackend represents the backend used for the cache metadata store.
	DatabaseBackend string
)

// All output formats supported by the query gateway.
const (
	CSVFormat  OutputFormat = "csv" // default
	JSONFormat OutputFormat = "json"
)

// All metadata store backends supported.
const (
	FileBackend       DatabaseBackend = "file" // default: JSON index inside the cache root
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
)

// BatchFilePrefix is the filename prefix for numbered batch files.
const BatchFilePrefix = "data_"

// BatchFileExt is the extension for batch files.
const BatchFileExt = ".parquet"
