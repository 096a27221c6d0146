package imaging_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/openverse/image-worker/internal/imaging"
)

func solidJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to build fixture JPEG: %v", err)
	}
	return buf.Bytes()
}

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 200, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to build fixture PNG: %v", err)
	}
	return buf.Bytes()
}

func TestResizeScalesDownLargeImage(t *testing.T) {
	raw := solidJPEG(t, 2000, 1000)

	thumb, err := imaging.Resize(raw, 640, 480)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if thumb.Width > 640 || thumb.Height > 480 {
		t.Fatalf("expected thumbnail within 640x480, got %dx%d", thumb.Width, thumb.Height)
	}
	// aspect ratio 2:1 preserved
	if thumb.Width != thumb.Height*2 {
		t.Fatalf("expected aspect ratio to be preserved, got %dx%d", thumb.Width, thumb.Height)
	}
	if len(thumb.Bytes) == 0 {
		t.Fatal("expected non-empty encoded output")
	}
}

func TestResizeLeavesSmallImageUnscaled(t *testing.T) {
	raw := solidPNG(t, 100, 50)

	thumb, err := imaging.Resize(raw, 640, 480)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if thumb.Width != 100 || thumb.Height != 50 {
		t.Fatalf("expected unscaled 100x50, got %dx%d", thumb.Width, thumb.Height)
	}
}

func TestResizeRejectsCorruptBytes(t *testing.T) {
	_, err := imaging.Resize([]byte("this is not an image"), 640, 480)
	if err == nil {
		t.Fatal("expected an error for corrupt input")
	}
}

func TestResizeRejectsEmptyInput(t *testing.T) {
	_, err := imaging.Resize(nil, 640, 480)
	if err == nil {
		t.Fatal("expected an error for empty input")
	}
}
