package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"pixelrank/internal/utils"
)

// Guard performs layered checks against downloaded image payloads before
// the full decode is attempted.
type Guard struct {
	limits Limits
	logger *utils.Logger
}

// NewGuard constructs a guard for the given limits.
func NewGuard(limits Limits, logger *utils.Logger) *Guard {
	return &Guard{
		limits: limits,
		logger: logger,
	}
}

var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"jpg":  {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46},
	"bmp":  {0x42, 0x4D},
	"tiff": {0x49, 0x49, 0x2A, 0x00},
}

// Check validates size, format, and dimensions of a raw payload via
// image.DecodeConfig, without decoding pixel data.
func (g *Guard) Check(raw []byte, declaredFormat string) (Meta, error) {
	if len(raw) == 0 {
		return Meta{}, fmt.Errorf("empty image payload")
	}

	if g.limits.MaxFileSize > 0 && int64(len(raw)) > g.limits.MaxFileSize {
		return Meta{}, fmt.Errorf(
			"file size exceeds limit: %d bytes (max %d bytes)",
			len(raw),
			g.limits.MaxFileSize,
		)
	}

	if declaredFormat != "" && !g.isFormatAllowed(declaredFormat) {
		return Meta{}, fmt.Errorf("unsupported format: %s", declaredFormat)
	}

	cfg, actualFormat, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		if declaredFormat != "" && !g.matchesSignature(raw, declaredFormat) {
			header := fmt.Sprintf("%x", raw[:min(len(raw), 16)])
			g.logger.WarnTag("DECODE",
				"file signature mismatch: declared_format=%s actual_header=%s",
				declaredFormat, header)
		}
		return Meta{}, fmt.Errorf("decode image config: %w", err)
	}

	if actualFormat != "" && !g.isFormatAllowed(actualFormat) {
		return Meta{}, fmt.Errorf("unsupported format: %s", actualFormat)
	}

	if (g.limits.MaxWidth > 0 && cfg.Width > g.limits.MaxWidth) ||
		(g.limits.MaxHeight > 0 && cfg.Height > g.limits.MaxHeight) {
		return Meta{}, fmt.Errorf("dimensions exceed limit: %dx%d (max %dx%d)",
			cfg.Width, cfg.Height, g.limits.MaxWidth, g.limits.MaxHeight)
	}

	totalPixels := int64(cfg.Width) * int64(cfg.Height)
	if g.limits.MaxPixels > 0 && totalPixels > g.limits.MaxPixels {
		return Meta{}, fmt.Errorf("pixel count exceeds limit: %d (max %d)",
			totalPixels, g.limits.MaxPixels)
	}

	meta := Meta{
		Format:   actualFormat,
		Width:    cfg.Width,
		Height:   cfg.Height,
		FileSize: int64(len(raw)),
	}

	g.logger.DebugTag("DECODE",
		"image accepted: format=%s width=%d height=%d size=%d",
		meta.Format, meta.Width, meta.Height, meta.FileSize)

	return meta, nil
}

func (g *Guard) isFormatAllowed(format string) bool {
	if len(g.limits.AllowedFormats) == 0 {
		return true
	}
	if format == "" {
		return true
	}

	format = strings.ToLower(format)
	for _, allowed := range g.limits.AllowedFormats {
		if strings.ToLower(allowed) == format {
			return true
		}
	}
	return false
}

func (g *Guard) matchesSignature(raw []byte, format string) bool {
	signature, ok := imageSignatures[strings.ToLower(format)]
	if !ok || len(signature) == 0 {
		return true
	}
	if len(raw) < len(signature) {
		return false
	}
	return bytes.Equal(signature, raw[:len(signature)])
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
