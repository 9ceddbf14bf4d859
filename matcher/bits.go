package matcher

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

const wordHexLen = 16

// Bits is a fingerprint read as a big unsigned integer, split into 64-bit
// words with the most significant word first
type Bits []uint64

// ParseBits parses a hexadecimal fingerprint of any length
func ParseBits(hex string) (Bits, error) {
	hex = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(hex)), "0x")
	if hex == "" {
		return nil, fmt.Errorf("empty fingerprint")
	}

	if pad := len(hex) % wordHexLen; pad != 0 {
		hex = strings.Repeat("0", wordHexLen-pad) + hex
	}

	words := make(Bits, 0, len(hex)/wordHexLen)
	for i := 0; i < len(hex); i += wordHexLen {
		w, err := strconv.ParseUint(hex[i:i+wordHexLen], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fingerprint %q: %w", hex, err)
		}
		words = append(words, w)
	}
	return words, nil
}

// Distance is the Hamming distance between a and b. Values of different
// width are compared as integers, i.e. the shorter one gets leading zeros.
func Distance(a, b Bits) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	offset := len(a) - len(b)

	d := 0
	for i, w := range a {
		var other uint64
		if i >= offset {
			other = b[i-offset]
		}
		d += bits.OnesCount64(w ^ other)
	}
	return d
}

// HexDistance parses both fingerprints and returns their Hamming distance
func HexDistance(a, b string) (int, error) {
	x, err := ParseBits(a)
	if err != nil {
		return 0, err
	}
	y, err := ParseBits(b)
	if err != nil {
		return 0, err
	}
	return Distance(x, y), nil
}
