package scan

import (
	"testing"

	"medscan-server-go/internal/domain/image"
	"medscan-server-go/internal/platform/config"
	testhelpers "medscan-server-go/internal/platform/testing"
)

// sequence replays fixed draws and fails loudly when over-consumed.
type sequence struct {
	t      *testing.T
	values []float64
	next   int
}

func draws(t *testing.T, values ...float64) *sequence {
	return &sequence{t: t, values: values}
}

func (s *sequence) Float64() float64 {
	if s.next >= len(s.values) {
		s.t.Fatalf("unexpected draw #%d", s.next+1)
	}
	v := s.values[s.next]
	s.next++
	return v
}

func (s *sequence) consumed() int { return s.next }

func pixelsOf(fx testhelpers.ScanFixture) image.PixelBuffer {
	img := fx.Image()
	return image.PixelBuffer{Width: fx.Width, Height: fx.Height, Pix: img.Pix}
}

func uniform(w, h int, r, g, b uint8) image.PixelBuffer {
	pix := make([]uint8, 0, w*h*4)
	for i := 0; i < w*h; i++ {
		pix = append(pix, r, g, b, 255)
	}
	return image.PixelBuffer{Width: w, Height: h, Pix: pix}
}

func defaults() config.ThresholdConfig {
	return config.DefaultThresholds()
}
