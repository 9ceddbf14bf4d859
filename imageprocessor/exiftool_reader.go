package imageprocessor

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"dupfinder/logging"

	"github.com/barasher/go-exiftool"
)

// ExiftoolReader reads DateTimeOriginal with a long-running exiftool process.
// It covers containers goexif cannot parse, such as HEIC and PNG eXIf chunks.
type ExiftoolReader struct {
	et *exiftool.Exiftool
	mu sync.Mutex
}

// NewExiftoolReader starts exiftool; callers must Close the reader
func NewExiftoolReader() (*ExiftoolReader, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize exiftool: %w", err)
	}
	return &ExiftoolReader{et: et}, nil
}

// CaptureTime extracts the DateTimeOriginal tag. The exiftool process serves
// one request at a time, so calls are serialized.
func (r *ExiftoolReader) CaptureTime(path string) (string, error) {
	r.mu.Lock()
	fileInfos := r.et.ExtractMetadata(path)
	r.mu.Unlock()

	if len(fileInfos) == 0 {
		return "", fmt.Errorf("no metadata extracted")
	}

	fileInfo := fileInfos[0]
	if fileInfo.Err != nil {
		return "", fileInfo.Err
	}

	value, err := fileInfo.GetString("DateTimeOriginal")
	if err != nil {
		return "", err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("empty DateTimeOriginal in %s", path)
	}
	return value, nil
}

// Close stops the exiftool process
func (r *ExiftoolReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.et.Close()
}

// hasExiftool checks if exiftool is available on the system
func hasExiftool() bool {
	_, err := exec.LookPath("exiftool")
	return err == nil
}

// DefaultCaptureTimeReader returns goexif, followed by exiftool when it is
// installed. The returned close function releases the exiftool process.
func DefaultCaptureTimeReader() (CaptureTimeReader, func()) {
	if !hasExiftool() {
		return ExifReader{}, func() {}
	}

	et, err := NewExiftoolReader()
	if err != nil {
		logging.LogWarning("exiftool unavailable, capture times limited to EXIF: %v", err)
		return ExifReader{}, func() {}
	}
	logging.DebugLog("Using exiftool for capture times")
	return ChainReader{ExifReader{}, et}, func() { et.Close() }
}
