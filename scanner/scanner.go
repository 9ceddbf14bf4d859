// Package scanner indexes image trees into the fingerprint store.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"dupfinder/database"
	"dupfinder/imageprocessor"
	"dupfinder/logging"
	"dupfinder/types"

	"golang.org/x/sync/errgroup"
)

// FileProcessor fingerprints one file. *imageprocessor.Engine implements it.
type FileProcessor interface {
	ProcessFile(path string, kind imageprocessor.FormatKind) (types.FingerprintRecord, error)
}

// Scanner walks roots, fingerprints new images on a worker pool and stores them
type Scanner struct {
	Store   database.Store
	Engine  FileProcessor
	Workers int
	// Progress receives the progress line; nil keeps the scan quiet
	Progress io.Writer
	Observer Observer
}

// New creates a scanner with one worker per CPU
func New(store database.Store, engine FileProcessor) *Scanner {
	return &Scanner{
		Store:   store,
		Engine:  engine,
		Workers: runtime.NumCPU(),
	}
}

// Add indexes every supported image under roots that is not in the store yet.
// Decode failures are counted and skipped; only store and context errors abort.
func (s *Scanner) Add(ctx context.Context, roots []string) (Stats, error) {
	startTime := time.Now()
	var stats Stats

	jobs, skippedPaths, err := s.collectJobs(ctx, roots)
	if err != nil {
		return stats, err
	}
	stats.Found = len(jobs) + len(skippedPaths)

	logging.LogInfo("Found %d image files, %d already indexed", stats.Found, len(skippedPaths))

	tracker := NewProgressTracker(stats.Found, s.Progress, s.Observer)
	for _, path := range skippedPaths {
		tracker.Record(path, OutcomeSkipped, nil)
	}

	err = s.run(ctx, jobs, func(res Result) error {
		if res.Err != nil {
			tracker.Record(res.Job.Path, OutcomeFailed, res.Err)
			return nil
		}

		err := s.Store.Insert(ctx, res.Record)
		switch {
		case errors.Is(err, database.ErrDuplicateKey):
			logging.LogWarning("Already indexed: %s", res.Job.Path)
			tracker.Record(res.Job.Path, OutcomeSkipped, nil)
			return nil
		case err != nil:
			return err
		}
		tracker.Record(res.Job.Path, OutcomeIndexed, nil)
		return nil
	})
	tracker.Stop()

	processed, skipped, failed := tracker.Counts()
	stats.Skipped = skipped
	stats.Failed = failed
	stats.Indexed = processed - skipped - failed
	stats.Elapsed = time.Since(startTime)

	logging.LogInfo("Indexing finished in %v: %d indexed, %d skipped, %d failed",
		stats.Elapsed.Round(time.Millisecond), stats.Indexed, stats.Skipped, stats.Failed)
	return stats, err
}

// collectJobs walks the roots and splits supported files into new jobs and
// paths already present in the store
func (s *Scanner) collectJobs(ctx context.Context, roots []string) ([]Job, []string, error) {
	var jobs []Job
	var skipped []string
	seen := make(map[string]struct{})

	err := WalkImages(ctx, roots, func(path string, kind imageprocessor.FormatKind) error {
		if _, dup := seen[path]; dup {
			return nil
		}
		seen[path] = struct{}{}

		exists, err := s.Store.Exists(ctx, path)
		if err != nil {
			return err
		}
		if exists {
			skipped = append(skipped, path)
			return nil
		}
		jobs = append(jobs, Job{Path: path, Kind: kind})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cannot collect image files: %w", err)
	}
	return jobs, skipped, nil
}

// run fans jobs out to the worker pool and hands every result to handle on the
// calling goroutine, in arrival order. The first handle error stops the pool.
func (s *Scanner) run(ctx context.Context, jobs []Job, handle func(Result) error) error {
	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	jobsCh := make(chan Job)
	resultsCh := make(chan Result, workers)

	g.Go(func() error {
		defer close(jobsCh)
		for _, job := range jobs {
			select {
			case jobsCh <- job:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for job := range jobsCh {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				rec, err := s.Engine.ProcessFile(job.Path, job.Kind)
				select {
				case resultsCh <- Result{Job: job, Record: rec, Err: err}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(resultsCh)
	}()

	var handleErr error
	for res := range resultsCh {
		if handleErr != nil {
			continue
		}
		if err := handle(res); err != nil {
			handleErr = err
			cancel()
		}
	}

	waitErr := g.Wait()
	if handleErr != nil {
		return handleErr
	}
	return waitErr
}

// Remove deletes the records of every supported image file under roots and
// returns how many records went away
func (s *Scanner) Remove(ctx context.Context, roots []string) (int64, error) {
	var paths []string
	err := WalkImages(ctx, roots, func(path string, _ imageprocessor.FormatKind) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cannot collect image files: %w", err)
	}

	removed, err := s.Store.DeleteMany(ctx, paths)
	if err != nil {
		return removed, err
	}
	logging.LogInfo("Removed %d of %d image records", removed, len(paths))
	return removed, nil
}

// Cleanup removes records whose file no longer exists on disk
func (s *Scanner) Cleanup(ctx context.Context) (int64, error) {
	var missing []string
	err := s.Store.Scan(ctx, func(rec types.FingerprintRecord) error {
		if fileMissing(rec.Path) {
			logging.LogWarning("Indexed file is missing: %s", rec.Path)
			missing = append(missing, rec.Path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cannot scan store: %w", err)
	}

	return s.Store.DeleteMany(ctx, missing)
}
