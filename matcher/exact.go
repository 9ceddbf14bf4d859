// Package matcher groups indexed images into exact and near duplicates.
package matcher

import (
	"context"
	"fmt"
	"sort"

	"dupfinder/database"
	"dupfinder/types"
)

// ExactOptions tunes FindExact
type ExactOptions struct {
	// MatchTime drops groups whose members disagree on capture time, unless a
	// member has no capture time at all
	MatchTime bool
}

// FindExact groups records with identical fingerprints. Groups have at least
// two members and are sorted by descending largest file size.
func FindExact(ctx context.Context, store database.Store, opts ExactOptions) ([]types.DuplicateGroup, error) {
	var groups []types.DuplicateGroup
	var err error

	if agg, ok := store.(database.Aggregator); ok {
		groups, err = agg.GroupByFingerprint(ctx)
	} else {
		groups, err = groupInProcess(ctx, store)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot group fingerprints: %w", err)
	}

	if opts.MatchTime {
		groups = filterSameTime(groups)
	}
	return groups, nil
}

func groupInProcess(ctx context.Context, store database.Store) ([]types.DuplicateGroup, error) {
	index := make(map[string]int)
	var all []types.DuplicateGroup

	err := store.Scan(ctx, func(rec types.FingerprintRecord) error {
		i, ok := index[rec.Fingerprint]
		if !ok {
			i = len(all)
			index[rec.Fingerprint] = i
			all = append(all, types.DuplicateGroup{Key: rec.Fingerprint})
		}

		g := &all[i]
		g.Items = append(g.Items, rec.Item())
		g.Total++
		if rec.FileSize > g.FileSize {
			g.FileSize = rec.FileSize
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	groups := all[:0]
	for _, g := range all {
		if g.Total > 1 {
			groups = append(groups, g)
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].FileSize > groups[j].FileSize
	})
	return groups, nil
}

// filterSameTime keeps groups whose capture times agree. Missing metadata is
// never treated as a mismatch.
func filterSameTime(groups []types.DuplicateGroup) []types.DuplicateGroup {
	var kept []types.DuplicateGroup
	for _, g := range groups {
		if g.HasUnknownTime() || sameCaptureTime(g) {
			kept = append(kept, g)
		}
	}
	return kept
}

func sameCaptureTime(g types.DuplicateGroup) bool {
	for _, item := range g.Items[1:] {
		if item.CaptureTime != g.Items[0].CaptureTime {
			return false
		}
	}
	return true
}
