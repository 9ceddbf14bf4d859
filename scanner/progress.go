package scanner

import (
	"fmt"
	"io"
	"sync"
	"time"

	"dupfinder/logging"
)

// ProgressTracker counts per-file outcomes and, when given a writer,
// periodically prints a progress line. It never influences control flow.
type ProgressTracker struct {
	processed  int
	skipped    int
	failed     int
	totalFiles int
	out        io.Writer
	ticker     *time.Ticker
	done       chan bool
	mu         sync.Mutex
	observer   Observer
}

// NewProgressTracker starts tracking totalFiles files. A nil out disables the display.
func NewProgressTracker(totalFiles int, out io.Writer, observer Observer) *ProgressTracker {
	tracker := &ProgressTracker{
		totalFiles: totalFiles,
		out:        out,
		done:       make(chan bool),
		observer:   observer,
	}

	if out != nil {
		tracker.ticker = time.NewTicker(500 * time.Millisecond)
		go tracker.displayProgress()
	}

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.printLine()
		}
	}
}

func (p *ProgressTracker) printLine() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failed > 0 {
		fmt.Fprintf(p.out, "\rProgress: %d/%d (Skipped: %d, Errors: %d)",
			p.processed, p.totalFiles, p.skipped, p.failed)
	} else {
		fmt.Fprintf(p.out, "\rProgress: %d/%d (Skipped: %d)",
			p.processed, p.totalFiles, p.skipped)
	}
}

// Record updates the counters for one file
func (p *ProgressTracker) Record(path string, outcome Outcome, err error) {
	p.mu.Lock()
	p.processed++
	switch outcome {
	case OutcomeSkipped:
		p.skipped++
		logging.DebugLog("Skipping indexed image: %s", path)
	case OutcomeFailed:
		p.failed++
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		logging.LogImageProcessed(path, false, msg)
	default:
		logging.LogImageProcessed(path, true, "")
	}
	p.mu.Unlock()

	if p.observer != nil {
		p.observer.Observe(path, outcome)
	}
}

// Counts returns processed, skipped and failed totals
func (p *ProgressTracker) Counts() (processed, skipped, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.skipped, p.failed
}

// Stop ends the progress display and prints the final line
func (p *ProgressTracker) Stop() {
	if p.ticker == nil {
		return
	}
	p.ticker.Stop()
	p.done <- true
	p.printLine()
	fmt.Fprintln(p.out)
}
