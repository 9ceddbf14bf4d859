package matcher

import (
	"context"
	"fmt"

	"dupfinder/database"
	"dupfinder/logging"
	"dupfinder/types"
)

// ProgressFunc receives the number of distinct fingerprints probed so far
type ProgressFunc func(scanned, total int)

// FuzzyOptions tunes FindFuzzy
type FuzzyOptions struct {
	// Threshold is the largest Hamming distance, in bits, that still matches
	Threshold int
	// Chain keeps expanding a group from every member it gains, so groups are
	// the connected components of the "within Threshold" relation
	Chain    bool
	Progress ProgressFunc
}

// FindFuzzy groups records whose fingerprints lie within the threshold of a
// probe fingerprint. Every distinct fingerprint is probed once in scan order;
// all values a probe returns are consumed, so a value never appears in two
// groups. A group is emitted when it collects at least two files, which makes
// threshold 0 equal to exact matching.
func FindFuzzy(ctx context.Context, store database.Store, opts FuzzyOptions) ([]types.DuplicateGroup, error) {
	threshold, progress := opts.Threshold, opts.Progress
	if threshold < 0 {
		return nil, fmt.Errorf("threshold must not be negative: %d", threshold)
	}

	tree := NewBKTree()
	var order []string
	distinct := make(map[string]struct{})

	err := store.Scan(ctx, func(rec types.FingerprintRecord) error {
		if _, ok := distinct[rec.Fingerprint]; ok {
			return nil
		}
		if err := tree.Add(rec.Fingerprint); err != nil {
			logging.LogWarning("Skipping %s: %v", rec.Path, err)
			return nil
		}
		distinct[rec.Fingerprint] = struct{}{}
		order = append(order, rec.Fingerprint)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot build fingerprint index: %w", err)
	}

	logging.DebugLog("Indexed %d distinct fingerprints, threshold %d", len(order), threshold)

	consumed := make(map[string]struct{}, len(order))
	var groups []types.DuplicateGroup

	for scanned, probe := range order {
		if progress != nil {
			progress(scanned, len(order))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, done := consumed[probe]; done {
			continue
		}

		values, err := collectCluster(tree, probe, threshold, opts.Chain, consumed)
		if err != nil {
			return nil, err
		}

		group := types.DuplicateGroup{Key: probe}
		for _, value := range values {
			recs, err := store.FindByFingerprint(ctx, value)
			if err != nil {
				return nil, fmt.Errorf("cannot load fingerprint %s: %w", value, err)
			}
			for _, rec := range recs {
				group.Items = append(group.Items, rec.Item())
				if rec.FileSize > group.FileSize {
					group.FileSize = rec.FileSize
				}
			}
		}

		group.Total = len(group.Items)
		if group.Total > 1 {
			groups = append(groups, group)
		}
	}

	if progress != nil {
		progress(len(order), len(order))
	}
	return groups, nil
}

// collectCluster returns the unconsumed values near probe and marks them
// consumed. With chain set, neighbors of every collected value are added too.
func collectCluster(tree *BKTree, probe string, threshold int, chain bool, consumed map[string]struct{}) ([]string, error) {
	var values []string
	queue := []string{probe}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		matches, err := tree.Find(current, threshold)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, done := consumed[m.Value]; done {
				continue
			}
			consumed[m.Value] = struct{}{}
			values = append(values, m.Value)
			if chain && m.Value != current {
				queue = append(queue, m.Value)
			}
		}

		if !chain {
			break
		}
	}
	return values, nil
}
