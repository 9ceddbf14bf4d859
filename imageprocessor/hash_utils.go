package imageprocessor

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/artyom/phash"
	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
)

// RotationHashLen is the hex length of one rotation hash; a fingerprint is four of them
const RotationHashLen = 16

// Hasher computes a 64-bit perceptual hash of one bitmap
type Hasher interface {
	Name() string
	Hash(img image.Image) (uint64, error)
}

// PerceptionHasher is the DCT based pHash of corona10/goimagehash
type PerceptionHasher struct{}

func (PerceptionHasher) Name() string { return "phash" }

func (PerceptionHasher) Hash(img image.Image) (uint64, error) {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, err
	}
	return h.GetHash(), nil
}

// DCTHasher is the pHash implementation of artyom/phash, resampling with Lanczos
type DCTHasher struct{}

func (DCTHasher) Name() string { return "dct" }

func (DCTHasher) Hash(img image.Image) (uint64, error) {
	return phash.Get(img, func(img image.Image, w, h int) image.Image {
		return imaging.Resize(img, w, h, imaging.Lanczos)
	})
}

// HasherByName resolves a configured hasher name
func HasherByName(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case "", "phash":
		return PerceptionHasher{}, nil
	case "dct":
		return DCTHasher{}, nil
	default:
		return nil, fmt.Errorf("unknown hasher %q (valid: phash, dct)", name)
	}
}

// RotationFingerprint hashes img at 0, 90, 180 and 270 degrees, sorts the four
// hex strings and concatenates them. Rotations are lossless, so an image and
// any quarter-turn copy of it share the same set of rotation hashes.
func RotationFingerprint(hasher Hasher, img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", fmt.Errorf("cannot compute hash for empty image")
	}

	base := imaging.Clone(img)
	rotations := []image.Image{
		base,
		imaging.Rotate90(base),
		imaging.Rotate180(base),
		imaging.Rotate270(base),
	}

	hashes := make([]string, 0, len(rotations))
	for _, rotated := range rotations {
		h, err := hasher.Hash(rotated)
		if err != nil {
			return "", fmt.Errorf("%s hash failed: %w", hasher.Name(), err)
		}
		hashes = append(hashes, fmt.Sprintf("%0*x", RotationHashLen, h))
	}

	sort.Strings(hashes)
	return strings.Join(hashes, ""), nil
}
