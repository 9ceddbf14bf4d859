package scanner

import (
	"time"

	"dupfinder/imageprocessor"
	"dupfinder/types"
)

// Job is one file handed to a worker
type Job struct {
	Path string
	Kind imageprocessor.FormatKind
}

// Result is what a worker returns for a Job: a record, or the error that
// prevented fingerprinting
type Result struct {
	Job    Job
	Record types.FingerprintRecord
	Err    error
}

// Outcome classifies a file for progress reporting
type Outcome int

const (
	OutcomeIndexed Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIndexed:
		return "indexed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer receives one call per file. Implementations must not block.
type Observer interface {
	Observe(path string, outcome Outcome)
}

// Stats summarizes an Add run
type Stats struct {
	Found   int // supported image files under the roots
	Indexed int
	Skipped int // already present in the store
	Failed  int
	Elapsed time.Duration
}
