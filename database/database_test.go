package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"dupfinder/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(path, fp string, size int64) types.FingerprintRecord {
	return types.FingerprintRecord{
		Path:        path,
		Fingerprint: fp,
		FileSize:    size,
		ImageSize:   "10 x 10",
		CaptureTime: types.TimeUnknown,
	}
}

func openTestStore(t *testing.T, driver string) Store {
	t.Helper()
	store, err := Open(context.Background(), Options{Location: t.TempDir(), Driver: driver})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreCRUD(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			store := openTestStore(t, driver)

			require.NoError(t, store.Insert(ctx, record("/a.png", "aaaa", 500)))
			require.NoError(t, store.Insert(ctx, record("/b.png", "aaaa", 300)))
			require.NoError(t, store.Insert(ctx, record("/c.png", "bbbb", 100)))

			ok, err := store.Exists(ctx, "/a.png")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = store.Exists(ctx, "/missing.png")
			require.NoError(t, err)
			assert.False(t, ok)

			rec, err := store.Get(ctx, "/b.png")
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, int64(300), rec.FileSize)
			assert.Equal(t, types.TimeUnknown, rec.CaptureTime)

			rec, err = store.Get(ctx, "/missing.png")
			require.NoError(t, err)
			assert.Nil(t, rec)

			same, err := store.FindByFingerprint(ctx, "aaaa")
			require.NoError(t, err)
			require.Len(t, same, 2)
			assert.Equal(t, "/a.png", same[0].Path)

			n, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)

			require.NoError(t, store.Delete(ctx, "/c.png"))
			require.NoError(t, store.Delete(ctx, "/c.png"))
			n, err = store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)
		})
	}
}

func TestSQLiteStoreDuplicateInsert(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, "")

	require.NoError(t, store.Insert(ctx, record("/a.png", "aaaa", 500)))
	err := store.Insert(ctx, record("/a.png", "ffff", 1))
	assert.True(t, errors.Is(err, ErrDuplicateKey))

	rec, err := store.Get(ctx, "/a.png")
	require.NoError(t, err)
	assert.Equal(t, "aaaa", rec.Fingerprint, "existing record must be left untouched")
}

func TestSQLiteStoreScanOrder(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, "")

	paths := []string{"/z.png", "/a.png", "/m.png"}
	for _, p := range paths {
		require.NoError(t, store.Insert(ctx, record(p, "aaaa", 1)))
	}

	var got []string
	require.NoError(t, store.Scan(ctx, func(rec types.FingerprintRecord) error {
		got = append(got, rec.Path)
		return nil
	}))
	assert.Equal(t, paths, got)

	stop := errors.New("stop")
	calls := 0
	err := store.Scan(ctx, func(types.FingerprintRecord) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestSQLiteStoreDeleteManyAndDrop(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, "")

	var paths []string
	for i := 0; i < 1200; i++ {
		p := fmt.Sprintf("/photos/%03d/img-%d.png", i%26, i)
		paths = append(paths, p)
		require.NoError(t, store.Insert(ctx, record(p, "aaaa", int64(i))))
	}

	removed, err := store.DeleteMany(ctx, append(paths[:1100:1100], "/not/indexed.png"))
	require.NoError(t, err)
	assert.Equal(t, int64(1100), removed)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)

	require.NoError(t, store.Drop(ctx))
	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, store.Insert(ctx, record("/after-drop.png", "aaaa", 1)))
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	store, err := Open(context.Background(), Options{Location: dir, Name: "photos", Collection: "pics"})
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(filepath.Join(dir, "photos.db"))
	assert.NoError(t, err)

	sqlite, ok := store.(*SQLiteStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "photos.db"), sqlite.Path())
}

func TestOpenFailuresAreStoreUnavailable(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Options{Location: t.TempDir(), Collection: "images; DROP TABLE x"})
	var unavailable *StoreUnavailableError
	require.ErrorAs(t, err, &unavailable)

	_, err = Open(ctx, Options{Location: t.TempDir(), Driver: "postgres"})
	require.ErrorAs(t, err, &unavailable)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	_, err = Open(ctx, Options{Location: filepath.Join(blocker, "db")})
	require.ErrorAs(t, err, &unavailable)
	assert.Contains(t, err.Error(), "store unavailable")
}

func TestIsMongoURI(t *testing.T) {
	assert.True(t, IsMongoURI("mongodb://localhost:27017"))
	assert.True(t, IsMongoURI("mongodb+srv://cluster.example.net"))
	assert.False(t, IsMongoURI("./db"))
	assert.False(t, IsMongoURI("/var/lib/mongodb"))
}

func TestGetScanStats(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, "")

	require.NoError(t, store.Insert(ctx, record("/a.png", "aaaa", 500)))
	require.NoError(t, store.Insert(ctx, record("/b.png", "aaaa", 300)))
	require.NoError(t, store.Insert(ctx, record("/c.png", "bbbb", 100)))

	stats, err := GetScanStats(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalImages)
	assert.Equal(t, 2, stats.UniqueHashes)
	assert.Equal(t, int64(900), stats.TotalBytes)
}
