package visualization

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"
)

// TestEncodeKeepsAlpha verifies an opaque image is still written with an alpha channel
func TestEncodeKeepsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Color type lives in the IHDR chunk right after the signature
	if got := buf.Bytes()[8+8+9]; got != pngColorRGBA {
		t.Errorf("Expected color type %d, got %d", pngColorRGBA, got)
	}

	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, ok := decoded.(*image.NRGBA); !ok {
		t.Errorf("Expected *image.NRGBA, got %T", decoded)
	}
}

// TestEncodeRoundTrip checks pixel fidelity across several IDAT chunks
func TestEncodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, 300, 200))
	rng.Read(img.Pix)

	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	got, ok := decoded.(*image.NRGBA)
	if !ok {
		t.Fatalf("Expected *image.NRGBA, got %T", decoded)
	}
	if !bytes.Equal(got.Pix, img.Pix) {
		t.Error("Decoded pixels differ from the source image")
	}
}

// TestEncodeSubImage verifies that sub-images are encoded from their own origin
func TestEncodeSubImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(2, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 40})
	sub := img.SubImage(image.Rect(2, 2, 4, 4)).(*image.NRGBA)

	var buf bytes.Buffer
	if err := Encode(&buf, sub); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Bounds().Dx() != 2 || decoded.Bounds().Dy() != 2 {
		t.Fatalf("Expected 2x2 image, got %v", decoded.Bounds())
	}
	if got := decoded.(*image.NRGBA).NRGBAAt(0, 0); got != (color.NRGBA{R: 10, G: 20, B: 30, A: 40}) {
		t.Errorf("Unexpected origin pixel %v", got)
	}
}
