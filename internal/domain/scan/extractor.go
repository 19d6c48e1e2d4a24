package scan

import (
	"medscan-server-go/internal/domain/image"
	"medscan-server-go/internal/platform/config"
)

// Extract computes the characteristics of a pixel buffer. It is pure: the
// same buffer always yields the same result.
//
// Contrast is the share of pixels that are either dark or bright. It is a
// bimodality proxy, not a statistical contrast, and the downstream cutoffs
// depend on exactly this definition.
func Extract(px image.PixelBuffer, th config.PixelThresholds) Characteristics {
	n := px.Len()
	if n <= 0 {
		return Characteristics{}
	}

	var total float64
	var dark, bright int
	for i := 0; i < n; i++ {
		r, g, b := px.RGB(i)
		brightness := (float64(r) + float64(g) + float64(b)) / 3
		total += brightness
		if brightness < th.DarkBelow {
			dark++
		}
		if brightness > th.BrightAbove {
			bright++
		}
	}

	ch := Characteristics{
		Brightness:       total / float64(n),
		DarkRatio:        float64(dark) / float64(n),
		BrightRatio:      float64(bright) / float64(n),
		HasGrayscaleLook: isGrayscale(px, th),
	}
	ch.Contrast = ch.DarkRatio + ch.BrightRatio

	highContrast := ch.Contrast > th.HighContrast
	ch.HasAnatomicalStructures = highContrast && ch.HasGrayscaleLook
	ch.IsDicomLike = ch.Brightness < th.DicomMaxBrightness && highContrast
	return ch
}

// isGrayscale averages the channel spread over the first pixels only, which
// keeps the check constant-time on large images.
func isGrayscale(px image.PixelBuffer, th config.PixelThresholds) bool {
	sample := min(th.GrayscaleSampleSize, px.Len())
	if sample <= 0 {
		return false
	}

	var variance int
	for i := 0; i < sample; i++ {
		r, g, b := px.RGB(i)
		variance += absDiff(r, g) + absDiff(g, b) + absDiff(r, b)
	}
	return float64(variance)/float64(sample) < th.GrayscaleMaxVariance
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
