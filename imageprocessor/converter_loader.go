package imageprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"

	"dupfinder/logging"
)

// ErrToolMissing is returned by a conversion method whose binary is not installed
var ErrToolMissing = errors.New("converter not installed")

// ConverterDecoder decodes formats without a Go codec by converting them to
// PNG with an external tool and loading the result
type ConverterDecoder struct {
	TempDir string
	methods []func(string, string) error
}

// NewConverterDecoder creates a decoder that tries ImageMagick 7, ImageMagick 6
// and libvips in that order
func NewConverterDecoder() *ConverterDecoder {
	d := &ConverterDecoder{TempDir: os.TempDir()}
	d.methods = []func(string, string) error{
		convertWithMagick,
		convertWithImageMagick,
		convertWithVips,
	}
	return d
}

func (d *ConverterDecoder) Name() string { return "converter" }

// Decode converts path to a temporary PNG and decodes it
func (d *ConverterDecoder) Decode(path string) (image.Image, error) {
	tmp, err := os.CreateTemp(d.TempDir, "dupfinder_conv_*.png")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp file: %w", err)
	}
	tempFilename := tmp.Name()
	tmp.Close()
	defer os.Remove(tempFilename)

	var errs []error
	for _, method := range d.methods {
		err := method(path, tempFilename)
		if err == nil {
			img, err := openDecoded(tempFilename)
			if err == nil {
				return img, nil
			}
			errs = append(errs, err)
			continue
		}
		if !errors.Is(err, ErrToolMissing) {
			logging.DebugLog("Conversion of %s failed: %v", path, err)
		}
		errs = append(errs, err)
	}

	return nil, fmt.Errorf("all conversion methods failed for %s: %w", filepath.Base(path), errors.Join(errs...))
}

// convertWithMagick converts using the ImageMagick 7 entry point. The [0]
// suffix selects the first frame of multi-image files.
func convertWithMagick(path, outputPath string) error {
	return runConverter("magick", path+"[0]", outputPath)
}

// convertWithImageMagick converts using the ImageMagick 6 convert binary
func convertWithImageMagick(path, outputPath string) error {
	return runConverter("convert", path+"[0]", outputPath)
}

// convertWithVips converts using libvips
func convertWithVips(path, outputPath string) error {
	return runConverter("vips", "copy", path, outputPath)
}

func runConverter(name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s: %w", name, ErrToolMissing)
	}

	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w, stderr: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
