//go:build !gocv || !cgo

package imageprocessor

import (
	"errors"
	"image"
)

// GocvDecoder stub type when built without OpenCV (see gocv_loader.go for the real implementation)
type GocvDecoder struct{}

// NewGocvDecoder returns a decoder that always fails
func NewGocvDecoder() *GocvDecoder {
	return &GocvDecoder{}
}

func (d *GocvDecoder) Name() string { return "opencv" }

// Decode returns an error; build with -tags gocv and CGO_ENABLED=1 to enable OpenCV
func (d *GocvDecoder) Decode(path string) (image.Image, error) {
	return nil, errors.New("OpenCV decoder requires the gocv build tag and CGO")
}

func gocvAvailable() bool { return false }
