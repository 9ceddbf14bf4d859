package matcher

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"dupfinder/database"
	"dupfinder/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, recs ...types.FingerprintRecord) database.Store {
	t.Helper()
	ctx := context.Background()
	store, err := database.Open(ctx, database.Options{Location: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for _, rec := range recs {
		require.NoError(t, store.Insert(ctx, rec))
	}
	return store
}

func rec(path, fp string, size int64, captured string) types.FingerprintRecord {
	if captured == "" {
		captured = types.TimeUnknown
	}
	return types.FingerprintRecord{Path: path, Fingerprint: fp, FileSize: size, ImageSize: "1 x 1", CaptureTime: captured}
}

func fileNames(g types.DuplicateGroup) []string {
	var names []string
	for _, item := range g.Items {
		names = append(names, item.FileName)
	}
	sort.Strings(names)
	return names
}

func membership(groups []types.DuplicateGroup) []string {
	var sets []string
	for _, g := range groups {
		sets = append(sets, strings.Join(fileNames(g), ","))
	}
	sort.Strings(sets)
	return sets
}

func TestParseBitsAndDistance(t *testing.T) {
	d, err := HexDistance("0000", "0003")
	require.NoError(t, err)
	assert.Equal(t, 2, d)

	d, err = HexDistance("0000", "00FF")
	require.NoError(t, err)
	assert.Equal(t, 8, d)

	d, err = HexDistance("ff", "00ff")
	require.NoError(t, err)
	assert.Zero(t, d, "values are compared as integers")

	long := strings.Repeat("f", 64)
	b, err := ParseBits(long)
	require.NoError(t, err)
	assert.Len(t, b, 4)
	zero, err := ParseBits(strings.Repeat("0", 64))
	require.NoError(t, err)
	assert.Equal(t, 256, Distance(b, zero))

	d, err = HexDistance("1"+strings.Repeat("0", 16), "0")
	require.NoError(t, err)
	assert.Equal(t, 1, d)

	_, err = ParseBits("xyz")
	assert.Error(t, err)
	_, err = ParseBits("")
	assert.Error(t, err)
}

func randomHex(rng *rand.Rand, n int) string {
	const digits = "0123456789abcdef"
	b := make([]byte, n)
	for i := range b {
		b[i] = digits[rng.Intn(16)]
	}
	return string(b)
}

// flipBits returns hex with k random distinct bits inverted
func flipBits(rng *rand.Rand, hex string, k int) string {
	b, _ := ParseBits(hex)
	width := len(b) * 64
	for _, pos := range rng.Perm(width)[:k] {
		b[pos/64] ^= 1 << uint(pos%64)
	}
	var sb strings.Builder
	for _, w := range b {
		fmt.Fprintf(&sb, "%016x", w)
	}
	return sb.String()[len(sb.String())-len(hex):]
}

func TestBKTreeMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := NewBKTree()

	var values []string
	for i := 0; i < 60; i++ {
		base := randomHex(rng, 16)
		values = append(values, base)
		for j := 0; j < 4; j++ {
			values = append(values, flipBits(rng, base, rng.Intn(6)))
		}
	}
	for _, v := range values {
		require.NoError(t, tree.Add(v))
	}
	require.NoError(t, tree.Add(values[0]))

	unique := make(map[string]struct{})
	for _, v := range values {
		unique[v] = struct{}{}
	}
	assert.Equal(t, len(unique), tree.Len())

	for _, radius := range []int{0, 1, 3, 8, 20} {
		for _, probe := range values[:40] {
			got, err := tree.Find(probe, radius)
			require.NoError(t, err)

			var want []string
			for v := range unique {
				d, _ := HexDistance(probe, v)
				if d <= radius {
					want = append(want, v)
				}
			}

			var gotValues []string
			for _, m := range got {
				gotValues = append(gotValues, m.Value)
				d, _ := HexDistance(probe, m.Value)
				assert.Equal(t, d, m.Distance)
			}
			assert.ElementsMatch(t, want, gotValues, "probe %s radius %d", probe, radius)
			require.NotEmpty(t, got)
			assert.Equal(t, Match{Distance: 0, Value: probe}, got[0])
		}
	}
}

func TestBKTreeEmptyAndInvalid(t *testing.T) {
	tree := NewBKTree()
	got, err := tree.Find("00", 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Error(t, tree.Add("not-hex"))
	_, err = tree.Find("not-hex", 1)
	assert.Error(t, err)
}

func TestFindExactExample(t *testing.T) {
	store := openStore(t,
		rec("/A", "aaaa", 500, ""),
		rec("/B", "aaaa", 300, ""),
		rec("/C", "bbbb", 100, ""),
	)

	groups, err := FindExact(context.Background(), store, ExactOptions{})
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, "aaaa", g.Key)
	assert.Equal(t, 2, g.Total)
	assert.Equal(t, int64(500), g.FileSize)
	assert.Equal(t, "/A", g.Items[0].FileName, "items keep scan order")
	assert.Equal(t, "/B", g.Items[1].FileName)
}

func TestFindExactInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var recs []types.FingerprintRecord
	pool := []string{"01", "02", "03", "04", "05", "06", "07", "08"}
	for i := 0; i < 40; i++ {
		recs = append(recs, rec(fmt.Sprintf("/img/%02d.png", i), pool[rng.Intn(len(pool))], int64(rng.Intn(10000)), ""))
	}
	store := openStore(t, recs...)

	groups, err := FindExact(context.Background(), store, ExactOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, groups)

	for i, g := range groups {
		assert.GreaterOrEqual(t, len(g.Items), 2)
		assert.Equal(t, len(g.Items), g.Total)

		var max int64
		for _, item := range g.Items {
			assert.Equal(t, g.Key, item.Fingerprint)
			if item.FileSize > max {
				max = item.FileSize
			}
		}
		assert.Equal(t, max, g.FileSize)

		if i > 0 {
			assert.GreaterOrEqual(t, groups[i-1].FileSize, g.FileSize)
		}
	}
}

func TestFindExactMatchTime(t *testing.T) {
	store := openStore(t,
		rec("/same1", "aaaa", 10, "2020:01:01 10:00:00"),
		rec("/same2", "aaaa", 10, "2020:01:01 10:00:00"),
		rec("/diff1", "bbbb", 20, "2020:01:01 10:00:00"),
		rec("/diff2", "bbbb", 20, "2021:06:01 08:00:00"),
		rec("/unknown1", "cccc", 30, "2020:01:01 10:00:00"),
		rec("/unknown2", "cccc", 30, types.TimeUnknown),
	)

	groups, err := FindExact(context.Background(), store, ExactOptions{})
	require.NoError(t, err)
	assert.Len(t, groups, 3)

	groups, err = FindExact(context.Background(), store, ExactOptions{MatchTime: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"/same1,/same2", "/unknown1,/unknown2"}, membership(groups))
	assert.Equal(t, "cccc", groups[0].Key)
}

type aggregatingStore struct {
	database.Store
	groups []types.DuplicateGroup
}

func (s aggregatingStore) GroupByFingerprint(context.Context) ([]types.DuplicateGroup, error) {
	return s.groups, nil
}

func TestFindExactUsesAggregator(t *testing.T) {
	store := aggregatingStore{
		Store: openStore(t),
		groups: []types.DuplicateGroup{
			{Key: "aaaa", Total: 2, FileSize: 9, Items: []types.DuplicateItem{
				{FileName: "/x", CaptureTime: "1"}, {FileName: "/y", CaptureTime: "2"},
			}},
		},
	}

	groups, err := FindExact(context.Background(), store, ExactOptions{})
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	groups, err = FindExact(context.Background(), store, ExactOptions{MatchTime: true})
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestFindFuzzyExample(t *testing.T) {
	store := openStore(t,
		rec("/x1", "0000", 1, ""),
		rec("/x2", "0003", 1, ""),
		rec("/x3", "00FF", 1, ""),
	)

	groups, err := FindFuzzy(context.Background(), store, FuzzyOptions{Threshold: 2})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "0000", groups[0].Key)
	assert.Equal(t, []string{"/x1", "/x2"}, fileNames(groups[0]))

	groups, err = FindFuzzy(context.Background(), store, FuzzyOptions{Threshold: 8})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"/x1", "/x2", "/x3"}, fileNames(groups[0]))
}

// clusteredStore builds well separated clusters of near-identical fingerprints
func clusteredStore(t *testing.T) database.Store {
	t.Helper()
	rng := rand.New(rand.NewSource(11))

	var recs []types.FingerprintRecord
	n := 0
	for c := 0; c < 12; c++ {
		base := randomHex(rng, 64)
		for j := 0; j < 1+rng.Intn(4); j++ {
			fp := base
			if j > 0 && rng.Intn(2) == 0 {
				fp = flipBits(rng, base, 1+rng.Intn(3))
			}
			recs = append(recs, rec(fmt.Sprintf("/p/%03d.png", n), fp, int64(rng.Intn(1000)), ""))
			n++
		}
	}
	return openStore(t, recs...)
}

func TestFindFuzzyThresholdZeroIsExact(t *testing.T) {
	ctx := context.Background()
	store := clusteredStore(t)

	exact, err := FindExact(ctx, store, ExactOptions{})
	require.NoError(t, err)
	fuzzy, err := FindFuzzy(ctx, store, FuzzyOptions{Threshold: 0})
	require.NoError(t, err)

	assert.Equal(t, membership(exact), membership(fuzzy))
}

// assertGroupsGrow checks every group found at one threshold is contained in
// a group found at the next one
func assertGroupsGrow(t *testing.T, store database.Store, chain bool, thresholds []int) {
	t.Helper()
	ctx := context.Background()

	var previous []types.DuplicateGroup
	for _, threshold := range thresholds {
		groups, err := FindFuzzy(ctx, store, FuzzyOptions{Threshold: threshold, Chain: chain})
		require.NoError(t, err)

		for _, old := range previous {
			found := false
			for _, g := range groups {
				if isSubset(fileNames(old), fileNames(g)) {
					found = true
					break
				}
			}
			assert.True(t, found, "group %v lost at threshold %d", fileNames(old), threshold)
		}
		previous = groups
	}
}

func TestFindFuzzySeparatedClustersGrowWithThreshold(t *testing.T) {
	store := clusteredStore(t)
	assertGroupsGrow(t, store, false, []int{0, 1, 2, 3, 4, 6})
	assertGroupsGrow(t, store, true, []int{0, 1, 2, 3, 4, 6})
}

func TestFindFuzzyChainGrowsWithThreshold(t *testing.T) {
	// y and z are closer to each other than x is to y
	store := openStore(t,
		rec("/x", "0000000000000000", 1, ""),
		rec("/y", "0000000000000003", 1, ""),
		rec("/z", "0000000000000007", 1, ""),
	)
	assertGroupsGrow(t, store, true, []int{0, 1, 2, 3})

	groups, err := FindFuzzy(context.Background(), store, FuzzyOptions{Threshold: 2, Chain: true})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []string{"/x", "/y", "/z"}, fileNames(groups[0]))
}

func isSubset(small, big []string) bool {
	set := make(map[string]struct{}, len(big))
	for _, s := range big {
		set[s] = struct{}{}
	}
	for _, s := range small {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

func TestFindFuzzyNoDoubleCounting(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(5))

	var recs []types.FingerprintRecord
	base := randomHex(rng, 16)
	for i := 0; i < 50; i++ {
		recs = append(recs, rec(fmt.Sprintf("/d/%02d", i), flipBits(rng, base, rng.Intn(10)), 1, ""))
	}
	store := openStore(t, recs...)

	for _, opts := range []FuzzyOptions{{Threshold: 3}, {Threshold: 6}, {Threshold: 3, Chain: true}} {
		groups, err := FindFuzzy(ctx, store, opts)
		require.NoError(t, err)

		owner := make(map[string]string)
		for _, g := range groups {
			assert.GreaterOrEqual(t, len(g.Items), 2)
			for _, item := range g.Items {
				if prev, ok := owner[item.Fingerprint]; ok {
					assert.Equal(t, prev, g.Key, "fingerprint %s in two groups", item.Fingerprint)
				}
				owner[item.Fingerprint] = g.Key
			}
		}
	}
}

func TestFindFuzzyChain(t *testing.T) {
	ctx := context.Background()
	store := openStore(t,
		rec("/a", "0000", 1, ""),
		rec("/b", "0003", 1, ""),
		rec("/c", "000f", 1, ""),
	)

	groups, err := FindFuzzy(ctx, store, FuzzyOptions{Threshold: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a,/b"}, membership(groups))

	groups, err = FindFuzzy(ctx, store, FuzzyOptions{Threshold: 2, Chain: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a,/b,/c"}, membership(groups))
	assert.Equal(t, "0000", groups[0].Key)
}

func TestFindFuzzyProgressAndValidation(t *testing.T) {
	ctx := context.Background()
	store := openStore(t,
		rec("/a", "0000", 1, ""),
		rec("/b", "0000", 1, ""),
		rec("/c", "ffff", 1, ""),
	)

	var calls [][2]int
	_, err := FindFuzzy(ctx, store, FuzzyOptions{Threshold: 1, Progress: func(scanned, total int) {
		calls = append(calls, [2]int{scanned, total})
	}})
	require.NoError(t, err)
	require.NotEmpty(t, calls)
	assert.Equal(t, [2]int{2, 2}, calls[len(calls)-1])

	_, err = FindFuzzy(ctx, store, FuzzyOptions{Threshold: -1})
	assert.Error(t, err)
}
