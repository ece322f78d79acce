package image

import (
	"bytes"
	"fmt"
	"image"
	stdcolor "image/color"

	"pixelrank/internal/domain/color"
	"pixelrank/internal/utils"
)

// Decoder turns validated raw bytes into decoded pixel data. Format support
// comes from the decoders registered by the guard's blank imports (jpeg,
// png, gif, webp, bmp, tiff).
type Decoder struct {
	guard  *Guard
	logger *utils.Logger
}

// NewDecoder creates a decoder that checks payloads against limits before
// the full decode.
func NewDecoder(limits Limits, logger *utils.Logger) *Decoder {
	return &Decoder{
		guard:  NewGuard(limits, logger),
		logger: logger,
	}
}

// Decode validates and decodes a raw payload.
func (d *Decoder) Decode(raw []byte, declaredFormat string) (image.Image, Meta, error) {
	meta, err := d.guard.Check(raw, declaredFormat)
	if err != nil {
		return nil, Meta{}, err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, Meta{}, fmt.Errorf("decode image: %w", err)
	}

	return img, meta, nil
}

// EachRGB walks every pixel in row-major order, discarding alpha. Channels
// are read non-premultiplied so pixels differing only in transparency yield
// the same color value.
func EachRGB(img image.Image, fn func(c color.RGB)) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := stdcolor.NRGBAModel.Convert(img.At(x, y)).(stdcolor.NRGBA)
			fn(color.FromChannels(px.R, px.G, px.B))
		}
	}
}
