package imageprocessor

import (
	"bytes"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// FormatKind represents a supported raster format, as detected from file content
type FormatKind string

// Known image format constants
const (
	FormatUnknown FormatKind = "unknown"
	FormatGIF     FormatKind = "gif"
	FormatJP2     FormatKind = "jp2"
	FormatJPEG    FormatKind = "jpeg"
	FormatPCX     FormatKind = "pcx"
	FormatPNG     FormatKind = "png"
	FormatTIFF    FormatKind = "tiff"
	FormatBMP     FormatKind = "bmp"
	FormatPPM     FormatKind = "ppm"
	FormatXBM     FormatKind = "xbm"
	FormatHEIC    FormatKind = "heic"
)

// Allow-list of MIME types mapped to format kinds. mimetype.MIME.Is also
// matches aliases, so image/x-ms-bmp resolves through image/bmp.
var mimeFormats = []struct {
	mime string
	kind FormatKind
}{
	{"image/gif", FormatGIF},
	{"image/jp2", FormatJP2},
	{"image/jpx", FormatJP2},
	{"image/jpeg", FormatJPEG},
	{"image/x-pcx", FormatPCX},
	{"image/png", FormatPNG},
	{"image/tiff", FormatTIFF},
	{"image/bmp", FormatBMP},
	{"image/x-ms-bmp", FormatBMP},
	{"image/x-portable-pixmap", FormatPPM},
	{"image/x-xbitmap", FormatXBM},
	{"image/heic", FormatHEIC},
	{"image/heic-sequence", FormatHEIC},
	{"image/heif", FormatHEIC},
	{"image/heif-sequence", FormatHEIC},
}

func init() {
	// mimetype has no signatures for PCX and XBM, and older releases lack PPM
	mimetype.Lookup("application/octet-stream").Extend(isPCX, "image/x-pcx", ".pcx")
	mimetype.Lookup("text/plain").Extend(isXBM, "image/x-xbitmap", ".xbm")
	if mimetype.Lookup("image/x-portable-pixmap") == nil {
		mimetype.Lookup("application/octet-stream").Extend(isPPM, "image/x-portable-pixmap", ".ppm")
	}
}

// isPPM checks the netpbm magic for binary (P6) and plain (P3) pixmaps
func isPPM(raw []byte, limit uint32) bool {
	if len(raw) < 3 || raw[0] != 'P' || (raw[1] != '6' && raw[1] != '3') {
		return false
	}
	switch raw[2] {
	case ' ', '\t', '\r', '\n', '#':
		return true
	}
	return false
}

// isPCX checks the ZSoft header: manufacturer 0x0A, a known version and RLE encoding
func isPCX(raw []byte, limit uint32) bool {
	if len(raw) < 128 || raw[0] != 0x0A || raw[2] != 0x01 {
		return false
	}
	switch raw[1] {
	case 0, 2, 3, 4, 5:
	default:
		return false
	}
	bpp := raw[3]
	return bpp == 1 || bpp == 2 || bpp == 4 || bpp == 8
}

// isXBM checks for the C #define preamble of an X bitmap
func isXBM(raw []byte, limit uint32) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("#define ")) && bytes.Contains(raw, []byte("_width "))
}

// DetectFormat inspects the file content and returns its format kind.
// Files that are readable but not in the allow-list return FormatUnknown and no error.
func DetectFormat(path string) (FormatKind, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("cannot detect format of %s: %w", path, err)
	}
	return formatFromMIME(mtype), nil
}

// DetectFormatBytes is DetectFormat for content already in memory
func DetectFormatBytes(data []byte) FormatKind {
	return formatFromMIME(mimetype.Detect(data))
}

func formatFromMIME(mtype *mimetype.MIME) FormatKind {
	for _, f := range mimeFormats {
		if mtype.Is(f.mime) {
			return f.kind
		}
	}
	return FormatUnknown
}

// IsSupported reports whether the format is in the allow-list
func (k FormatKind) IsSupported() bool {
	return k != FormatUnknown && k != ""
}

// Extension returns a canonical file extension for the format
func (k FormatKind) Extension() string {
	switch k {
	case FormatGIF:
		return ".gif"
	case FormatJP2:
		return ".jp2"
	case FormatJPEG:
		return ".jpg"
	case FormatPCX:
		return ".pcx"
	case FormatPNG:
		return ".png"
	case FormatTIFF:
		return ".tiff"
	case FormatBMP:
		return ".bmp"
	case FormatPPM:
		return ".ppm"
	case FormatXBM:
		return ".xbm"
	case FormatHEIC:
		return ".heic"
	default:
		return ""
	}
}

// SupportedFormats lists every format kind in the allow-list
func SupportedFormats() []FormatKind {
	return []FormatKind{
		FormatGIF, FormatJP2, FormatJPEG, FormatPCX, FormatPNG,
		FormatTIFF, FormatBMP, FormatPPM, FormatXBM, FormatHEIC,
	}
}
