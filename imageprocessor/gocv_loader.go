//go:build gocv && cgo

package imageprocessor

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GocvDecoder loads images through OpenCV's imread, which covers JPEG 2000
// and the netpbm family when OpenCV was built with them
type GocvDecoder struct{}

// NewGocvDecoder creates a new OpenCV backed decoder
func NewGocvDecoder() *GocvDecoder {
	return &GocvDecoder{}
}

func (d *GocvDecoder) Name() string { return "opencv" }

// Decode reads the file as a 3 channel BGR matrix and converts it to an image.Image
func (d *GocvDecoder) Decode(path string) (image.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("failed to load image: %s", path)
	}
	return mat.ToImage()
}

func gocvAvailable() bool { return true }
