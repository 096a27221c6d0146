// Package imaging implements the Image Decoder/Resizer (spec §4.D): it
// decodes arbitrary, untrusted image bytes and produces a thumbnail
// bounded to a maximum width and height, preserving aspect ratio. The
// codec registration pattern (blank-imported decoders keyed off the
// sniffed format) follows perkeep's pkg/images package; the resize step
// itself uses golang.org/x/image/draw, already part of this stack's
// dependency closure.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Thumbnail is a decoded-and-resized image ready for persistence.
type Thumbnail struct {
	Format        string
	Width, Height int
	Bytes         []byte
}

// Resize decodes raw image bytes and scales them down to fit within
// maxWidth x maxHeight, preserving aspect ratio. Images already smaller
// than the bounds are returned unscaled. The output is always encoded
// as JPEG regardless of source format, matching the worker's single
// on-disk representation.
//
// Resize never panics on malformed input: image.Decode returns a plain
// error for any bytes it cannot recognize, and callers are expected to
// wrap calls into this package with their own panic recovery in case a
// third-party decoder misbehaves on adversarial input.
func Resize(raw []byte, maxWidth, maxHeight int) (Thumbnail, error) {
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Thumbnail{}, fmt.Errorf("imaging: decoding source image: %w", err)
	}

	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return Thumbnail{}, fmt.Errorf("imaging: source image has empty bounds")
	}

	dstW, dstH := fitWithin(srcW, srcH, maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return Thumbnail{}, fmt.Errorf("imaging: encoding resized image: %w", err)
	}

	return Thumbnail{
		Format: format,
		Width:  dstW,
		Height: dstH,
		Bytes:  buf.Bytes(),
	}, nil
}

// fitWithin computes the largest dimensions no greater than maxWidth x
// maxHeight that preserve the srcW:srcH aspect ratio. If the source
// already fits, its original dimensions are returned unchanged.
func fitWithin(srcW, srcH, maxWidth, maxHeight int) (int, int) {
	if srcW <= maxWidth && srcH <= maxHeight {
		return srcW, srcH
	}

	widthRatio := float64(maxWidth) / float64(srcW)
	heightRatio := float64(maxHeight) / float64(srcH)
	ratio := widthRatio
	if heightRatio < ratio {
		ratio = heightRatio
	}

	dstW := int(float64(srcW) * ratio)
	dstH := int(float64(srcH) * ratio)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}
	return dstW, dstH
}
