package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"dupfinder/logging"
	"dupfinder/types"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore keeps fingerprint records in one SQLite table
type SQLiteStore struct {
	db    *sql.DB
	table string
	path  string
}

// NewSQLiteStore opens (creating when needed) the database file at dbPath and
// initializes the records table. driver selects mattn/go-sqlite3 ("sqlite3",
// the default) or the pure Go modernc.org/sqlite ("sqlite").
func NewSQLiteStore(ctx context.Context, dbPath, table, driver string) (*SQLiteStore, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, &StoreUnavailableError{Location: dbPath, Err: fmt.Errorf("invalid collection name %q", table)}
	}
	if driver == "" {
		driver = "sqlite3"
	}

	var dsn string
	switch driver {
	case "sqlite3":
		dsn = dbPath + "?_busy_timeout=5000&_journal_mode=WAL"
	case "sqlite":
		dsn = dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	default:
		return nil, &StoreUnavailableError{Location: dbPath, Err: fmt.Errorf("unknown sqlite driver %q", driver)}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, &StoreUnavailableError{Location: dbPath, Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &StoreUnavailableError{Location: dbPath, Err: err}
	}

	s := &SQLiteStore{db: db, table: table, path: dbPath}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, &StoreUnavailableError{Location: dbPath, Err: err}
	}

	logging.DebugLog("Opened SQLite store %s (table %s, driver %s)", dbPath, table, driver)
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		path TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		image_size TEXT,
		capture_time TEXT,
		indexed_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_fingerprint ON %[1]s(fingerprint);`, s.table)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("cannot create table %s: %w", s.table, err)
	}
	return nil
}

// Path returns the database file location
func (s *SQLiteStore) Path() string { return s.path }

// Insert stores a record. INSERT OR IGNORE keeps the existing row, and a zero
// row count is reported as ErrDuplicateKey.
func (s *SQLiteStore) Insert(ctx context.Context, rec types.FingerprintRecord) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT OR IGNORE INTO %s (path, fingerprint, file_size, image_size, capture_time, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)`, s.table),
		rec.Path, rec.Fingerprint, rec.FileSize, rec.ImageSize, rec.CaptureTime,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %w", rec.Path, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %w", rec.Path, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", rec.Path, ErrDuplicateKey)
	}
	return nil
}

// Exists checks if a path is already indexed
func (s *SQLiteStore) Exists(ctx context.Context, path string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE path = ?", s.table), path).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("database error for %s: %w", path, err)
	}
	return count > 0, nil
}

// Get looks a record up by path
func (s *SQLiteStore) Get(ctx context.Context, path string) (*types.FingerprintRecord, error) {
	var rec types.FingerprintRecord
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT path, fingerprint, file_size, image_size, capture_time FROM %s WHERE path = ?", s.table), path,
	).Scan(&rec.Path, &rec.Fingerprint, &rec.FileSize, &rec.ImageSize, &rec.CaptureTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database error for %s: %w", path, err)
	}
	return &rec, nil
}

// Scan streams all records in insertion order. fn must not write to the store.
func (s *SQLiteStore) Scan(ctx context.Context, fn func(types.FingerprintRecord) error) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT path, fingerprint, file_size, image_size, capture_time FROM %s ORDER BY rowid", s.table))
	if err != nil {
		return fmt.Errorf("cannot scan %s: %w", s.table, err)
	}
	defer rows.Close()

	return s.each(rows, fn)
}

// FindByFingerprint returns every record sharing the fingerprint
func (s *SQLiteStore) FindByFingerprint(ctx context.Context, fingerprint string) ([]types.FingerprintRecord, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT path, fingerprint, file_size, image_size, capture_time FROM %s WHERE fingerprint = ? ORDER BY rowid", s.table),
		fingerprint)
	if err != nil {
		return nil, fmt.Errorf("cannot query fingerprint %s: %w", fingerprint, err)
	}
	defer rows.Close()

	var out []types.FingerprintRecord
	err = s.each(rows, func(rec types.FingerprintRecord) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (s *SQLiteStore) each(rows *sql.Rows, fn func(types.FingerprintRecord) error) error {
	for rows.Next() {
		var rec types.FingerprintRecord
		var imageSize, captureTime sql.NullString
		if err := rows.Scan(&rec.Path, &rec.Fingerprint, &rec.FileSize, &imageSize, &captureTime); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		rec.ImageSize = imageSize.String
		rec.CaptureTime = captureTime.String
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Delete removes the record for path
func (s *SQLiteStore) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE path = ?", s.table), path); err != nil {
		return fmt.Errorf("cannot delete %s: %w", path, err)
	}
	return nil
}

// DeleteMany removes the records for paths in batches
func (s *SQLiteStore) DeleteMany(ctx context.Context, paths []string) (int64, error) {
	const batchSize = 500

	var removed int64
	for start := 0; start < len(paths); start += batchSize {
		end := start + batchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]

		args := make([]interface{}, len(batch))
		for i, p := range batch {
			args[i] = p
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE path IN (%s)", s.table, placeholders), args...)
		if err != nil {
			return removed, fmt.Errorf("cannot delete batch: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	return removed, nil
}

// Drop removes every record. The table is recreated empty so the store stays usable.
func (s *SQLiteStore) Drop(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table)); err != nil {
		return fmt.Errorf("cannot drop %s: %w", s.table, err)
	}
	return s.initSchema(ctx)
}

// Count returns the number of indexed files
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
