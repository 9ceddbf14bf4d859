// Package imageprocessor decodes image files and computes their rotation-invariant
// perceptual fingerprints.
package imageprocessor

import (
	"fmt"
	"image"
	"os"

	"dupfinder/types"
)

// Engine turns image files into fingerprint records
type Engine struct {
	Hasher   Hasher
	Decoders *DecoderRegistry
	Metadata CaptureTimeReader
}

// NewEngine creates an engine with the given hasher, the default decoder
// registry and EXIF capture time extraction
func NewEngine(hasher Hasher) *Engine {
	if hasher == nil {
		hasher = PerceptionHasher{}
	}
	return &Engine{
		Hasher:   hasher,
		Decoders: NewDecoderRegistry(),
		Metadata: ExifReader{},
	}
}

// Fingerprint computes the rotation-invariant fingerprint of a decoded image
func (e *Engine) Fingerprint(img image.Image) (string, error) {
	return RotationFingerprint(e.Hasher, img)
}

// ProcessFile decodes path, fingerprints it and gathers its descriptive
// metadata. Decode and hash failures are returned as *DecodeError.
func (e *Engine) ProcessFile(path string, kind FormatKind) (types.FingerprintRecord, error) {
	img, err := e.Decoders.Decode(path, kind)
	if err != nil {
		return types.FingerprintRecord{}, err
	}

	fingerprint, err := e.Fingerprint(img)
	if err != nil {
		return types.FingerprintRecord{}, &DecodeError{Path: path, Kind: kind, Err: err}
	}

	var fileSize int64
	if info, err := os.Stat(path); err == nil {
		fileSize = info.Size()
	}

	return types.FingerprintRecord{
		Path:        path,
		Fingerprint: fingerprint,
		FileSize:    fileSize,
		ImageSize:   ImageSize(img),
		CaptureTime: CaptureTimeOrUnknown(e.Metadata, path),
	}, nil
}

// ImageSize formats the pixel dimensions as "<width> x <height>"
func ImageSize(img image.Image) string {
	b := img.Bounds()
	return fmt.Sprintf("%d x %d", b.Dx(), b.Dy())
}
