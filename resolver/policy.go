package resolver

import (
	"fmt"
	"strings"
	"time"

	"dupfinder/types"
)

// KeepPolicy decides which member of a duplicate group survives
type KeepPolicy string

const (
	// KeepFirst keeps the first item in the order the matcher produced
	KeepFirst KeepPolicy = "first"
	// KeepLargest keeps the biggest file
	KeepLargest KeepPolicy = "largest"
	// KeepEarliest keeps the file with the earliest known capture time
	KeepEarliest KeepPolicy = "earliest"
)

// exifTimeLayout is the EXIF DateTimeOriginal format
const exifTimeLayout = "2006:01:02 15:04:05"

// ParseKeepPolicy validates a configured policy name; empty means KeepFirst
func ParseKeepPolicy(name string) (KeepPolicy, error) {
	switch p := KeepPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return KeepFirst, nil
	case KeepFirst, KeepLargest, KeepEarliest:
		return p, nil
	default:
		return "", fmt.Errorf("unknown keep policy %q (valid: first, largest, earliest)", name)
	}
}

// Choose returns the index of the item to keep. Ties go to the earlier item,
// so every policy falls back to matcher order.
func (p KeepPolicy) Choose(items []types.DuplicateItem) int {
	best := 0
	for i := 1; i < len(items); i++ {
		switch p {
		case KeepLargest:
			if items[i].FileSize > items[best].FileSize {
				best = i
			}
		case KeepEarliest:
			if earlier(items[i].CaptureTime, items[best].CaptureTime) {
				best = i
			}
		}
	}
	return best
}

// earlier reports whether capture time a precedes b. Unknown or unparsable
// times sort after every known time.
func earlier(a, b string) bool {
	ta, okA := parseCaptureTime(a)
	tb, okB := parseCaptureTime(b)
	switch {
	case okA && okB:
		return ta.Before(tb)
	case okA:
		return true
	default:
		return false
	}
}

func parseCaptureTime(value string) (time.Time, bool) {
	if value == "" || value == types.TimeUnknown {
		return time.Time{}, false
	}
	t, err := time.Parse(exifTimeLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
