package imageprocessor

import (
	"fmt"
	"image"
	"os"
)

// HEICDecoder decodes HEIC/HEIF containers through libheif's heif-convert tool
type HEICDecoder struct {
	TempDir string
}

// NewHEICDecoder creates a new loader for HEIC files
func NewHEICDecoder() *HEICDecoder {
	return &HEICDecoder{TempDir: os.TempDir()}
}

func (d *HEICDecoder) Name() string { return "heif-convert" }

// Decode converts the primary image to a temporary JPEG and loads it. The
// source file is left untouched.
func (d *HEICDecoder) Decode(path string) (image.Image, error) {
	tmp, err := os.CreateTemp(d.TempDir, "dupfinder_heic_*.jpg")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp file: %w", err)
	}
	jpgPath := tmp.Name()
	tmp.Close()
	defer os.Remove(jpgPath)

	if err := runConverter("heif-convert", "-q", "95", path, jpgPath); err != nil {
		return nil, err
	}
	return openDecoded(jpgPath)
}
