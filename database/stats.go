package database

import (
	"context"
	"fmt"

	"dupfinder/types"
)

// ScanStats contains summary figures about the indexed images
type ScanStats struct {
	TotalImages  int
	UniqueHashes int
	TotalBytes   int64
}

// GetScanStats walks the store once and summarizes it
func GetScanStats(ctx context.Context, store Store) (*ScanStats, error) {
	var stats ScanStats
	seen := make(map[string]struct{})

	err := store.Scan(ctx, func(rec types.FingerprintRecord) error {
		stats.TotalImages++
		stats.TotalBytes += rec.FileSize
		seen[rec.Fingerprint] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get scan stats: %w", err)
	}

	stats.UniqueHashes = len(seen)
	return &stats, nil
}
