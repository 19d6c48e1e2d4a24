package testing

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Gray levels used by ScanFixture. DarkLevel and BrightLevel fall on either
// side of the default pixel classification cutoffs.
const (
	DarkLevel   = 10
	BrightLevel = 230
)

// ScanFixture describes a synthetic scan with known pixel statistics. Pixels
// are laid out row-major: the first DarkRatio share is dark, the next
// BrightRatio share is bright, the rest is Base with deterministic jitter.
type ScanFixture struct {
	Width, Height int
	Base          uint8
	DarkRatio     float64
	BrightRatio   float64
	// Jitter spreads body pixels over Base±Jitter so encoders cannot
	// compress the image to nothing.
	Jitter uint8
	// Tint shifts the red and blue channels apart so the image is no
	// longer grayscale.
	Tint bool
}

// ChestXRay is a valid, high-contrast dark grayscale scan: brightness ~85,
// contrast 0.55.
func ChestXRay() ScanFixture {
	return ScanFixture{Width: 256, Height: 256, Base: 120, DarkRatio: 0.45, BrightRatio: 0.10, Jitter: 25}
}

// Snapshot is a bright colour photo that must be rejected.
func Snapshot() ScanFixture {
	return ScanFixture{Width: 200, Height: 200, Base: 190, BrightRatio: 0.3, Jitter: 8, Tint: true}
}

// Image renders the fixture.
func (f ScanFixture) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	total := f.Width * f.Height
	darkEnd := int(f.DarkRatio * float64(total))
	brightEnd := darkEnd + int(f.BrightRatio*float64(total))

	seed := uint32(2463534242)
	for i := 0; i < total; i++ {
		var v int
		switch {
		case i < darkEnd:
			v = DarkLevel
		case i < brightEnd:
			v = BrightLevel
		default:
			v = int(f.Base)
			if f.Jitter > 0 {
				seed ^= seed << 13
				seed ^= seed >> 17
				seed ^= seed << 5
				v += int(seed%uint32(2*int(f.Jitter)+1)) - int(f.Jitter)
			}
		}
		r, g, b := clamp(v), clamp(v), clamp(v)
		if f.Tint {
			r, b = clamp(v+45), clamp(v-45)
		}
		img.SetNRGBA(i%f.Width, i/f.Width, color.NRGBA{R: r, G: g, B: b, A: 255})
	}
	return img
}

func (f ScanFixture) PNG(t testing.TB) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, f.Image()); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func (f ScanFixture) JPEG(t testing.TB) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image(), &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func (f ScanFixture) GIF(t testing.TB) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, f.Image(), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

func (f ScanFixture) BMP(t testing.TB) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, f.Image()); err != nil {
		t.Fatalf("encode bmp: %v", err)
	}
	return buf.Bytes()
}

func (f ScanFixture) TIFF(t testing.TB) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, f.Image(), nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}
	return buf.Bytes()
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
