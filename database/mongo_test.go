package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"dupfinder/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("DUPFINDER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("DUPFINDER_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := fmt.Sprintf("images_%d", time.Now().UnixNano())
	store, err := NewMongoStore(ctx, uri, "dupfinder_test", collection)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Drop(context.Background())
		_ = store.Close()
	})
	return store
}

func TestMongoStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := openMongoStore(t)

	require.NoError(t, store.Insert(ctx, record("/a.png", "aaaa", 500)))
	require.NoError(t, store.Insert(ctx, record("/b.png", "aaaa", 300)))
	require.NoError(t, store.Insert(ctx, record("/c.png", "bbbb", 100)))
	assert.ErrorIs(t, store.Insert(ctx, record("/a.png", "cccc", 1)), ErrDuplicateKey)

	ok, err := store.Exists(ctx, "/c.png")
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := store.Get(ctx, "/nope.png")
	require.NoError(t, err)
	assert.Nil(t, rec)

	removed, err := store.DeleteMany(ctx, []string{"/c.png", "/nope.png"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMongoStoreGroupByFingerprint(t *testing.T) {
	ctx := context.Background()
	store := openMongoStore(t)

	require.NoError(t, store.Insert(ctx, record("/a.png", "aaaa", 500)))
	require.NoError(t, store.Insert(ctx, record("/b.png", "aaaa", 300)))
	require.NoError(t, store.Insert(ctx, record("/c.png", "bbbb", 100)))
	require.NoError(t, store.Insert(ctx, record("/d.png", "dddd", 900)))
	require.NoError(t, store.Insert(ctx, record("/e.png", "dddd", 10)))

	groups, err := store.GroupByFingerprint(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "dddd", groups[0].Key)
	assert.Equal(t, int64(900), groups[0].FileSize)
	assert.Equal(t, "aaaa", groups[1].Key)
	assert.Equal(t, 2, groups[1].Total)
	assert.ElementsMatch(t, []string{"/a.png", "/b.png"},
		[]string{groups[1].Items[0].FileName, groups[1].Items[1].FileName})
	assert.Equal(t, types.TimeUnknown, groups[1].Items[0].CaptureTime)
}
