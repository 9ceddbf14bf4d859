package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// MaxThreshold is the number of bits in a fingerprint; any larger Hamming
// radius matches everything
const MaxThreshold = 4 * 64

// ParseThreshold parses and validates a Hamming distance threshold
func ParseThreshold(thresholdStr string) (int, error) {
	parsedThreshold, err := strconv.Atoi(strings.TrimSpace(thresholdStr))
	if err != nil || parsedThreshold < 0 || parsedThreshold > MaxThreshold {
		return 0, fmt.Errorf("invalid threshold value '%s': want a bit count between 0 and %d", thresholdStr, MaxThreshold)
	}
	return parsedThreshold, nil
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// FormatSize renders a byte count for terminal output
func FormatSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}

// PluralS returns "s" unless n is one
func PluralS(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
