package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"dupfinder/imageprocessor"
	"dupfinder/logging"
)

// WalkImages calls fn for every supported image file under the roots, with an
// absolute path and the format detected from its content. Unreadable entries
// are logged and skipped.
func WalkImages(ctx context.Context, roots []string, fn func(path string, kind imageprocessor.FormatKind) error) error {
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				logging.LogWarning("Error accessing path %s: %v", path, err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			kind, err := imageprocessor.DetectFormat(path)
			if err != nil {
				logging.LogWarning("%v", err)
				return nil
			}
			if !kind.IsSupported() {
				return nil
			}
			return fn(path, kind)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// fileMissing reports whether path no longer exists on disk
func fileMissing(path string) bool {
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}
