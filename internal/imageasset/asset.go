// Package imageasset holds captured image payloads. An Asset is immutable: edits
// produce a new Asset with a new ID, and the workflow compares assets by ID.
package imageasset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanoberholster/imagemeta"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// MaxBytes is the largest payload accepted for analysis or editing.
const MaxBytes = 20 << 20

// ErrNotImage is returned for payloads whose MIME type is not a supported image type.
var ErrNotImage = errors.New("not a supported image")

// SupportedImageExtensions maps file extensions to the MIME types we can decode.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var extensionsByMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Asset is an image payload with its MIME type and display dimensions.
type Asset struct {
	id       string
	name     string
	data     []byte
	mimeType string
	width    int
	height   int
}

// FromBytes captures data as a new Asset. The bytes are copied. mimeType may be
// empty, in which case it is sniffed from the content. Width and height are the
// display dimensions: EXIF orientations that rotate by 90 degrees swap them.
func FromBytes(data []byte, mimeType, name string) (*Asset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrNotImage)
	}
	if len(data) > MaxBytes {
		return nil, fmt.Errorf("image is %d bytes, limit is %d", len(data), MaxBytes)
	}

	mimeType = normalizeMIME(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalizeMIME(http.DetectContentType(data))
	}
	if !IsSupportedMIME(mimeType) {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image dimensions: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}

	width, height := cfg.Width, cfg.Height
	if rotated(data) {
		width, height = height, width
	}

	a := &Asset{
		id:       uuid.NewString(),
		name:     name,
		data:     bytes.Clone(data),
		mimeType: mimeType,
		width:    width,
		height:   height,
	}

	log.Debug().
		Str("asset_id", a.id).
		Str("name", name).
		Str("mime", mimeType).
		Str("format", format).
		Int("width", width).
		Int("height", height).
		Int("bytes", len(data)).
		Msg("Image asset captured")

	return a, nil
}

// Load reads an image file from disk.
func Load(path string) (*Asset, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType, ok := SupportedImageExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported file extension %q", ErrNotImage, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return FromBytes(data, mimeType, filepath.Base(path))
}

// ID uniquely identifies this capture.
func (a *Asset) ID() string { return a.id }

// Name is the original file name, if known.
func (a *Asset) Name() string { return a.name }

// Bytes returns the payload. Callers must not modify it.
func (a *Asset) Bytes() []byte { return a.data }

// MIMEType returns the payload MIME type.
func (a *Asset) MIMEType() string { return a.mimeType }

// Width returns the display width in pixels.
func (a *Asset) Width() int { return a.width }

// Height returns the display height in pixels.
func (a *Asset) Height() int { return a.height }

// Size returns the payload length in bytes.
func (a *Asset) Size() int { return len(a.data) }

// Decode decodes the full image, for previews.
func (a *Asset) Decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(a.data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// FileName returns a download name for the asset, using prefix and the
// extension matching its MIME type.
func (a *Asset) FileName(prefix string) string {
	base := strings.TrimSuffix(a.name, filepath.Ext(a.name))
	if base == "" {
		base = a.id[:8]
	}
	return prefix + base + ExtensionFor(a.mimeType)
}

// IsSupportedMIME reports whether mimeType is an image type we can decode.
func IsSupportedMIME(mimeType string) bool {
	_, ok := extensionsByMIME[normalizeMIME(mimeType)]
	return ok
}

// ExtensionFor returns the file extension for a MIME type, defaulting to ".img".
func ExtensionFor(mimeType string) string {
	if ext, ok := extensionsByMIME[normalizeMIME(mimeType)]; ok {
		return ext
	}
	return ".img"
}

func normalizeMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "image/jpg" {
		return "image/jpeg"
	}
	return mimeType
}

// rotated reports whether the EXIF orientation turns the stored image by 90
// degrees (orientations 5-8). Missing or unreadable EXIF counts as upright.
func rotated(data []byte) bool {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return false
	}
	o := int(exifData.Orientation)
	return o >= 5 && o <= 8
}
