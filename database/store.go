package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dupfinder/types"
)

// ErrDuplicateKey is returned by Insert when a record for the path already exists
var ErrDuplicateKey = errors.New("duplicate key")

// StoreUnavailableError reports that the backing store cannot be reached or created
type StoreUnavailableError struct {
	Location string
	Err      error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable at %s: %v", e.Location, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// Store is the persistent mapping from file path to fingerprint record.
// Every mutation is a single atomic operation.
type Store interface {
	// Insert adds a record; ErrDuplicateKey if the path is already present
	Insert(ctx context.Context, rec types.FingerprintRecord) error

	Exists(ctx context.Context, path string) (bool, error)

	// Get returns the record for path, or nil when it is not indexed
	Get(ctx context.Context, path string) (*types.FingerprintRecord, error)

	// Scan streams every record to fn in unspecified order. Returning an error
	// from fn stops the scan and is returned by Scan.
	Scan(ctx context.Context, fn func(types.FingerprintRecord) error) error

	FindByFingerprint(ctx context.Context, fingerprint string) ([]types.FingerprintRecord, error)

	// Delete removes one record. Deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error

	// DeleteMany removes every listed path and returns how many records went away
	DeleteMany(ctx context.Context, paths []string) (int64, error)

	// Drop removes all records
	Drop(ctx context.Context) error

	Count(ctx context.Context) (int64, error)

	Close() error
}

// Aggregator is implemented by stores that can group records by fingerprint
// themselves. Groups must have at least two members and come sorted by
// descending maximum file size.
type Aggregator interface {
	GroupByFingerprint(ctx context.Context) ([]types.DuplicateGroup, error)
}

// Options selects and locates the backing store
type Options struct {
	// Location is a MongoDB URI or a directory holding the SQLite database
	Location   string
	Name       string
	Collection string
	// Driver is the database/sql driver used for SQLite: "sqlite3" or "sqlite"
	Driver string
}

// IsMongoURI reports whether location names a MongoDB deployment
func IsMongoURI(location string) bool {
	return strings.HasPrefix(location, "mongodb://") || strings.HasPrefix(location, "mongodb+srv://")
}

// Open connects to the store described by opts. Failures are returned as
// *StoreUnavailableError.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.Name == "" {
		opts.Name = "image_database"
	}
	if opts.Collection == "" {
		opts.Collection = "images"
	}

	if IsMongoURI(opts.Location) {
		return NewMongoStore(ctx, opts.Location, opts.Name, opts.Collection)
	}

	dir := opts.Location
	if dir == "" {
		dir = "./db"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StoreUnavailableError{Location: dir, Err: err}
	}
	return NewSQLiteStore(ctx, filepath.Join(dir, opts.Name+".db"), opts.Collection, opts.Driver)
}
