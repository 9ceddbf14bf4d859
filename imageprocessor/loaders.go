package imageprocessor

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Decoder turns an image file into a bitmap
type Decoder interface {
	// Name identifies the decoder in logs
	Name() string

	// Decode loads and returns the image
	Decode(path string) (image.Image, error)
}

// DecodeError reports an unreadable, corrupt or unsupported image file
type DecodeError struct {
	Path string
	Kind FormatKind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %s image %s: %v", e.Kind, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StandardDecoder decodes one format that has a Go decoder: GIF, JPEG, PNG,
// BMP or TIFF
type StandardDecoder struct {
	decode func(io.Reader) (image.Image, error)
}

// NewStandardDecoder creates the native decoder for kind. The codec is chosen
// here so Decode never sniffs the file again.
func NewStandardDecoder(kind FormatKind) *StandardDecoder {
	return &StandardDecoder{decode: codecFor(kind)}
}

func (d *StandardDecoder) Name() string { return "standard" }

// Decode reads the file with the codec of its kind. Orientation tags are
// ignored; rotation invariance comes from the fingerprint.
func (d *StandardDecoder) Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return d.decode(f)
}

func codecFor(kind FormatKind) func(io.Reader) (image.Image, error) {
	switch kind {
	case FormatBMP:
		return bmp.Decode
	case FormatTIFF:
		return tiff.Decode
	default:
		return func(r io.Reader) (image.Image, error) { return imaging.Decode(r) }
	}
}

// openDecoded loads an intermediate file produced by an external converter
func openDecoded(path string) (image.Image, error) {
	if !fileHasContent(path) {
		return nil, fmt.Errorf("converter produced no output: %s", path)
	}
	return imaging.Open(path)
}

// fileHasContent checks if a file exists and has a non-zero size
func fileHasContent(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
