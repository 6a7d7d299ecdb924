package iocache

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	_ "modernc.org/sqlite"             // sqlite driver for database/sql
)

// Table names for persisted analysis data.
const (
	repositoriesTable = "legend_repositories"
	analysesTable     = "legend_analyses"
	commitsTable      = "legend_commits"
	contributorsTable = "legend_contributors"
	modelConfigsTable = "legend_model_configs"
)

// allTables lists every table in dependency-safe drop order.
var allTables = []string{modelConfigsTable, contributorsTable, commitsTable, analysesTable, repositoriesTable}

// sqliteTimeLayout is fixed width so that TEXT columns sort chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLStore implements the Store contract on top of database/sql.
type SQLStore struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.Store = &SQLStore{} // Compile-time check

// NewSQLStore migrates the database to the latest schema and opens a store on it.
func NewSQLStore(backend schema.DatabaseBackend, connStr string) (*SQLStore, error) {
	if err := migrateQuietly(backend, connStr); err != nil {
		return nil, err
	}
	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	return newSQLStoreWithDB(db, backend), nil
}

// newSQLStoreWithDB wraps an already opened and migrated database.
func newSQLStoreWithDB(db *sql.DB, backend schema.DatabaseBackend) *SQLStore {
	return &SQLStore{db: db, backend: backend}
}

// openDB opens and pings a database for the backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = GetDBFilePath()
		}
		db, err = sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		dsn, dsnErr := normalizeMySQLDSN(connStr)
		if dsnErr != nil {
			return nil, dsnErr
		}
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		db, err = sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=... dbname=... user=... password=...", err)
		}

	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Verify the database file is accessible."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}
	return db, nil
}

// normalizeMySQLDSN forces the options the store and its migrations rely on.
func normalizeMySQLDSN(connStr string) (string, error) {
	cfg, err := mysql.ParseDSN(connStr)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL connection string: %w", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// table returns the quoted name of a table.
func (s *SQLStore) table(name string) string {
	return quoteTableName(name, s.backend)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// time converts a time.Time to the representation stored by the backend.
func (s *SQLStore) time(t time.Time) any {
	return formatTime(t, s.backend)
}

// timePtr is time for nullable columns.
func (s *SQLStore) timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t, s.backend)
}

// GetStatus returns status information about the store.
func (s *SQLStore) GetStatus() (schema.StoreStatus, error) {
	ctx := context.Background()
	status := schema.StoreStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}
	if s.db == nil {
		return status, nil
	}

	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table(analysesTable))).Scan(&status.TotalAnalyses); err != nil {
		return status, fmt.Errorf("failed to get total analyses: %w", err)
	}

	if status.TotalAnalyses > 0 {
		var last, oldest dbTime
		query := fmt.Sprintf("SELECT id, created_at FROM %s ORDER BY created_at DESC LIMIT 1", s.table(analysesTable))
		if err := s.db.QueryRowContext(ctx, query).Scan(&status.LastAnalysisID, &last); err != nil {
			return status, fmt.Errorf("failed to get last analysis info: %w", err)
		}
		query = fmt.Sprintf("SELECT created_at FROM %s ORDER BY created_at ASC LIMIT 1", s.table(analysesTable))
		if err := s.db.QueryRowContext(ctx, query).Scan(&oldest); err != nil {
			return status, fmt.Errorf("failed to get oldest analysis time: %w", err)
		}
		status.LastAnalysisAt = last.Time
		status.OldestAnalysisAt = oldest.Time
	}

	for _, table := range allTables {
		var count int64
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table(table))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	version, err := schemaVersion(ctx, s.db)
	if err != nil {
		return status, err
	}
	status.SchemaVersion = version
	return status, nil
}

// schemaVersion reads the version recorded by golang-migrate; 0 when none.
func schemaVersion(ctx context.Context, db *sql.DB) (uint, error) {
	var version sql.NullInt64
	err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM "+migrationsTable).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid || version.Int64 < 0 {
		return 0, nil
	}
	return uint(version.Int64), nil
}

// DashboardStats counts repositories, runs and commits across the store.
func (s *SQLStore) DashboardStats(ctx context.Context, now time.Time) (schema.DashboardStats, error) {
	var stats schema.DashboardStats
	counts := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&stats.Repositories, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table(repositoriesTable)), nil},
		{&stats.Analyses, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status = ?", s.table(analysesTable)), []any{string(schema.CompletedStatus)}},
		{&stats.Processing, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status = ?", s.table(analysesTable)), []any{string(schema.ProcessingStatus)}},
		{&stats.Commits, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table(commitsTable)), nil},
		{&stats.RecentActivity, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE created_at >= ?", s.table(analysesTable)), []any{s.time(now.AddDate(0, 0, -7))}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, s.rebind(c.query), c.args...).Scan(c.dest); err != nil {
			return stats, fmt.Errorf("failed to compute dashboard stats: %w", err)
		}
	}
	return stats, nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("\"%s\"", name)
	}
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(sqliteTimeLayout)
	default:
		return t.UTC()
	}
}

// dbTime scans both native time columns and SQLite text timestamps.
type dbTime struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (t *dbTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*t = dbTime{}
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value of type %T", value)
	}
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	t.Time, t.Valid = parsed.UTC(), true
	return nil
}

// Ptr returns nil for NULL values.
func (t dbTime) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
