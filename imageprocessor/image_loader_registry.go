package imageprocessor

import (
	"errors"
	"fmt"
	"image"
	"runtime/debug"
	"sync"

	"dupfinder/logging"
)

// ErrNoDecoder is returned when no decoder is registered for a format
var ErrNoDecoder = errors.New("no decoder registered")

// DecoderRegistry maintains the ordered decoder chain for each format kind
type DecoderRegistry struct {
	decoders map[FormatKind][]Decoder
	mutex    sync.RWMutex
}

// NewDecoderRegistry creates a registry with the standard decoders, the
// external converter chain and, when built with OpenCV, the gocv fallback
func NewDecoderRegistry() *DecoderRegistry {
	registry := &DecoderRegistry{
		decoders: make(map[FormatKind][]Decoder),
	}

	registry.registerStandardDecoders()
	registry.registerSpecializedDecoders()

	return registry
}

// NewEmptyDecoderRegistry creates a registry without any decoder
func NewEmptyDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[FormatKind][]Decoder)}
}

func (r *DecoderRegistry) registerStandardDecoders() {
	for _, kind := range []FormatKind{FormatGIF, FormatJPEG, FormatPNG, FormatBMP, FormatTIFF} {
		r.RegisterDecoder(kind, NewStandardDecoder(kind))
	}
}

func (r *DecoderRegistry) registerSpecializedDecoders() {
	converter := NewConverterDecoder()

	// TIFF variants the Go codec rejects (JPEG-in-TIFF, tiles) go through the converters
	r.RegisterDecoder(FormatTIFF, converter)

	for _, kind := range []FormatKind{FormatJP2, FormatPCX, FormatPPM, FormatXBM} {
		if gocvAvailable() {
			r.RegisterDecoder(kind, NewGocvDecoder())
		}
		r.RegisterDecoder(kind, converter)
	}

	r.RegisterDecoder(FormatHEIC, NewHEICDecoder())
	r.RegisterDecoder(FormatHEIC, converter)
}

// RegisterDecoder appends a decoder to the chain for kind
func (r *DecoderRegistry) RegisterDecoder(kind FormatKind, decoder Decoder) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.decoders[kind] = append(r.decoders[kind], decoder)
}

// Decoders returns the chain registered for kind
func (r *DecoderRegistry) Decoders(kind FormatKind) []Decoder {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return append([]Decoder(nil), r.decoders[kind]...)
}

// Decode tries each decoder registered for kind in order. Any failure,
// including a panic inside a codec, is returned as *DecodeError.
func (r *DecoderRegistry) Decode(path string, kind FormatKind) (image.Image, error) {
	chain := r.Decoders(kind)
	if len(chain) == 0 {
		return nil, &DecodeError{Path: path, Kind: kind, Err: ErrNoDecoder}
	}

	var errs []error
	for _, decoder := range chain {
		img, err := safeDecode(decoder, path)
		if err == nil && img != nil {
			return img, nil
		}
		if err == nil {
			err = fmt.Errorf("%s returned no image", decoder.Name())
		}
		logging.DebugLog("Decoder %s failed for %s: %v", decoder.Name(), path, err)
		errs = append(errs, fmt.Errorf("%s: %w", decoder.Name(), err))
	}

	return nil, &DecodeError{Path: path, Kind: kind, Err: errors.Join(errs...)}
}

func safeDecode(decoder Decoder, path string) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogError("Panic while decoding %s: %v\n%s", path, r, debug.Stack())
			img = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return decoder.Decode(path)
}
