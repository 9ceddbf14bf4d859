// Package resolver removes redundant copies from duplicate groups by moving
// them into a trash directory.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dupfinder/database"
	"dupfinder/logging"
	"dupfinder/types"
)

// DefaultTrash is used when no trash directory is configured
const DefaultTrash = "./Trash"

// Resolver keeps one file per group and relocates the others
type Resolver struct {
	Store database.Store
	Trash string
	Keep  KeepPolicy
}

// Summary counts the outcome of a DeleteDuplicates run
type Summary struct {
	Deleted  int
	Failed   int
	Failures []error
}

// Total is the number of files the resolver tried to relocate
func (s Summary) Total() int { return s.Deleted + s.Failed }

// New creates a resolver with the default keep policy
func New(store database.Store, trash string) *Resolver {
	return &Resolver{Store: store, Trash: trash, Keep: KeepFirst}
}

// DeleteDuplicates relocates every member of every group except the one chosen
// by the keep policy. Per-file failures are counted, never fatal.
func (r *Resolver) DeleteDuplicates(ctx context.Context, groups []types.DuplicateGroup) Summary {
	var summary Summary
	for _, group := range groups {
		if len(group.Items) < 2 {
			continue
		}

		keep := r.Keep.Choose(group.Items)
		logging.DebugLog("Keeping %s for group %s", group.Items[keep].FileName, group.Key)

		for i, item := range group.Items {
			if i == keep {
				continue
			}
			if err := r.Relocate(ctx, item.FileName); err != nil {
				summary.Failed++
				summary.Failures = append(summary.Failures, err)
				continue
			}
			summary.Deleted++
		}
	}

	logging.LogInfo("Deleted %d/%d files", summary.Deleted, summary.Total())
	return summary
}

// DeletePicture relocates a single file and reports success, for the review server
func (r *Resolver) DeletePicture(ctx context.Context, path string) bool {
	return r.Relocate(ctx, path) == nil
}

// Relocate moves path into the trash and deletes its record. On failure the
// file and the record are left untouched.
func (r *Resolver) Relocate(ctx context.Context, path string) error {
	trash := r.Trash
	if trash == "" {
		trash = DefaultTrash
	}
	dest := filepath.Join(trash, filepath.Base(path))
	logging.LogInfo("Moving %s to %s", path, trash)

	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err := &MissingFileError{Path: path}
			logging.LogWarning("%v", err)
			return err
		}
		return r.fail(path, dest, err)
	}

	if err := os.MkdirAll(trash, 0755); err != nil {
		return r.fail(path, dest, err)
	}
	if err := moveNoReplace(path, dest); err != nil {
		return r.fail(path, dest, err)
	}

	if err := r.Store.Delete(ctx, path); err != nil {
		if rbErr := os.Rename(dest, path); rbErr != nil {
			logging.LogError("Cannot restore %s from %s: %v", path, dest, rbErr)
		}
		return r.fail(path, dest, fmt.Errorf("cannot delete record: %w", err))
	}
	return nil
}

// moveNoReplace renames src to dst unless dst exists. A hard link claims dst
// atomically; filesystems without links fall back to a checked rename, which
// can still lose a race with a file created at dst in between.
func moveNoReplace(src, dst string) error {
	err := os.Link(src, dst)
	switch {
	case err == nil:
		if err := os.Remove(src); err != nil {
			_ = os.Remove(dst)
			return err
		}
		return nil
	case errors.Is(err, os.ErrExist):
		return ErrNameCollision
	}

	if _, err := os.Lstat(dst); err == nil {
		return ErrNameCollision
	}
	return os.Rename(src, dst)
}

func (r *Resolver) fail(path, dest string, err error) error {
	relErr := &RelocationError{Path: path, Dest: dest, Err: err}
	logging.LogWarning("%v", relErr)
	return relErr
}
