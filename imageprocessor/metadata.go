package imageprocessor

import (
	"fmt"
	"os"
	"strings"

	"dupfinder/types"

	"github.com/rwcarlsen/goexif/exif"
)

// CaptureTimeReader extracts the original capture timestamp of an image file
type CaptureTimeReader interface {
	CaptureTime(path string) (string, error)
}

// ExifReader reads DateTimeOriginal from embedded EXIF data (JPEG, TIFF)
type ExifReader struct{}

func (ExifReader) CaptureTime(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return "", err
	}

	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return "", err
	}
	value, err := tag.StringVal()
	if err != nil {
		return "", err
	}

	value = strings.TrimSpace(strings.TrimRight(value, "\x00"))
	if value == "" {
		return "", fmt.Errorf("empty DateTimeOriginal in %s", path)
	}
	return value, nil
}

// ChainReader asks each reader in turn and returns the first capture time found
type ChainReader []CaptureTimeReader

func (c ChainReader) CaptureTime(path string) (string, error) {
	var lastErr error
	for _, reader := range c {
		value, err := reader.CaptureTime(path)
		if err == nil {
			return value, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no capture time reader configured")
	}
	return "", lastErr
}

// CaptureTimeOrUnknown never fails: any error becomes the "Time unknown" sentinel
func CaptureTimeOrUnknown(reader CaptureTimeReader, path string) string {
	if reader == nil {
		return types.TimeUnknown
	}
	value, err := reader.CaptureTime(path)
	if err != nil || value == "" {
		return types.TimeUnknown
	}
	return value
}
