package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

// dbTableName is the metadata table used by all database backends.
const dbTableName = "cache_entries"

// DBStore stores cache entries in a SQL database. Entries are serialized
// as JSON values keyed by "<tool>/<partition_key>", so the same table
// shape works for SQLite, MySQL, and PostgreSQL.
type DBStore struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.MetadataStore = &DBStore{} // Compile-time check

// NewDBStore opens the metadata database for the given backend and ensures
// the schema exists via migrations.
func NewDBStore(backend schema.DatabaseBackend, connStr, cacheRoot string) (*DBStore, error) {
	db, err := openMetadataDB(backend, connStr, cacheRoot)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s metadata database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}

	if err := migrateUp(db, backend); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DBStore{db: db, backend: backend}, nil
}

// openMetadataDB opens a *sql.DB for the backend without pinging it.
func openMetadataDB(backend schema.DatabaseBackend, connStr, cacheRoot string) (*sql.DB, error) {
	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = contract.GetMetadataDBFilePath(cacheRoot)
		}
		db, err := sql.Open("sqlite3", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite metadata store at %q: %w. Ensure the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
		return db, nil

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname
		db, err := sql.Open("mysql", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL metadata store: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
		}
		return db, nil

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=mysecretpassword dbname=postgres
		db, err := sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL metadata store: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported metadata backend: %s. Must be sqlite, mysql, or postgresql", backend)
	}
}

// placeholder returns the parameter placeholder for position n.
func (s *DBStore) placeholder(n int) string {
	if s.backend == schema.PostgreSQLBackend {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Get returns the entry for key, or contract.ErrEntryNotFound.
func (s *DBStore) Get(key string) (*schema.CacheEntry, error) {
	query := fmt.Sprintf(`SELECT entry_value FROM %s WHERE entry_key = %s`, dbTableName, s.placeholder(1))

	var value []byte
	if err := s.db.QueryRow(query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contract.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}

	var entry schema.CacheEntry
	if err := json.Unmarshal(value, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry %q: %w", key, err)
	}
	return &entry, nil
}

// Set inserts or replaces the entry for key.
func (s *DBStore) Set(key string, entry *schema.CacheEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %q: %w", key, err)
	}

	if _, err := s.db.Exec(s.upsertQuery(), key, value, entry.UpdatedAt.Unix()); err != nil {
		return fmt.Errorf("failed to store cache entry %q: %w", key, err)
	}
	return nil
}

// upsertQuery returns the backend-specific UPSERT statement.
func (s *DBStore) upsertQuery() string {
	switch s.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (entry_key, entry_value, entry_timestamp) VALUES (?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE entry_value = new.entry_value, entry_timestamp = new.entry_timestamp`, dbTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (entry_key, entry_value, entry_timestamp) VALUES ($1, $2, $3)
			ON CONFLICT (entry_key) DO UPDATE SET entry_value = EXCLUDED.entry_value, entry_timestamp = EXCLUDED.entry_timestamp`, dbTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (entry_key, entry_value, entry_timestamp) VALUES (?, ?, ?)`, dbTableName)
	}
}

// Delete removes the entry for key. Deleting an absent key is a no-op.
func (s *DBStore) Delete(key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE entry_key = %s`, dbTableName, s.placeholder(1))
	if _, err := s.db.Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete cache entry %q: %w", key, err)
	}
	return nil
}

// List returns all entries keyed by "<tool>/<partition_key>".
func (s *DBStore) List() (map[string]*schema.CacheEntry, error) {
	query := fmt.Sprintf(`SELECT entry_key, entry_value FROM %s`, dbTableName)
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make(map[string]*schema.CacheEntry)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		var entry schema.CacheEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			contract.LogWarn(fmt.Sprintf("decoding cache entry %q, skipping", key), err)
			continue
		}
		entries[key] = &entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache entries: %w", err)
	}
	return entries, nil
}

// Close closes the underlying DB connection.
func (s *DBStore) Close() error {
	return s.db.Close()
}

// NewMetadataStore returns the metadata store for the configured backend.
func NewMetadataStore(cfg *contract.Config) (contract.MetadataStore, error) {
	switch cfg.MetadataBackend {
	case schema.FileBackend, "":
		return NewFileStore(cfg.CacheRoot)
	default:
		return NewDBStore(cfg.MetadataBackend, cfg.MetadataDBConnect, cfg.CacheRoot)
	}
}
