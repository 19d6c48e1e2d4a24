package scan

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "medscan-server-go/internal/platform/testing"
)

func TestAnalyzer_SolidGrayIsInvalid(t *testing.T) {
	a := NewAnalyzer(defaults())
	rnd := draws(t)

	out := a.Analyze(uniform(256, 256, 128, 128, 128), FileInfo{"scan.png", 50_000}, rnd)

	assert.True(t, out.Characteristics.HasGrayscaleLook)
	assert.Zero(t, out.Characteristics.Contrast)
	assert.False(t, out.Classification.Valid)
	assert.Empty(t, out.Classification.ScanType)
	assert.Empty(t, out.Classification.BodyPart)
	assert.Equal(t, InvalidReport(), out.Report)
	assert.Zero(t, rnd.consumed())
}

func TestAnalyzer_NoisyChestXRay(t *testing.T) {
	fx := testhelpers.ScanFixture{Width: 512, Height: 512, Base: 104, DarkRatio: 0.35, BrightRatio: 0.15}
	a := NewAnalyzer(defaults())
	rnd := draws(t, 0.5, 0.0)

	out := a.Analyze(pixelsOf(fx), FileInfo{"chest_xray_01.dcm", 200_000}, rnd)

	ch := out.Characteristics
	assert.InDelta(t, 0.5, ch.Contrast, 1e-4)
	assert.InDelta(t, 90, ch.Brightness, 0.01)
	assert.True(t, ch.HasGrayscaleLook)

	assert.Equal(t, Classification{Valid: true, ScanType: ScanTypeXRay, BodyPart: BodyPartExtremities}, out.Classification)
	assert.Equal(t, 98, out.Report.Confidence)
	assert.Equal(t, []string{"No acute fractures"}, out.Report.Findings)
	assert.Equal(t, SeverityNormal, out.Report.Severity)
}

func TestAnalyzer_ColourPhotoIsInvalid(t *testing.T) {
	a := NewAnalyzer(defaults())
	out := a.Analyze(pixelsOf(testhelpers.Snapshot()), FileInfo{"holiday.jpg", 2 << 20}, draws(t))

	assert.False(t, out.Characteristics.HasGrayscaleLook)
	assert.False(t, out.Classification.Valid)
	assert.Equal(t, SeverityError, out.Report.Severity)
}

func TestAnalyzer_SeededRunsAreIdentical(t *testing.T) {
	a := NewAnalyzer(defaults())
	px := pixelsOf(testhelpers.ChestXRay())
	file := FileInfo{"knee.png", 80_000}
	factory := SeededRandom(42)

	first := a.Analyze(px, file, factory())
	second := a.Analyze(px, file, factory())
	assert.Equal(t, first, second)
}

func TestAnalyzer_ValidScanProperties(t *testing.T) {
	a := NewAnalyzer(defaults())
	fixtures := []testhelpers.ScanFixture{
		testhelpers.ChestXRay(),
		{Width: 64, Height: 64, Base: 120, DarkRatio: 0.5, BrightRatio: 0.2},
		{Width: 64, Height: 64, Base: 90, DarkRatio: 0.25},
		{Width: 64, Height: 64, Base: 150, BrightRatio: 0.25},
	}
	names := []string{"scan.png", "head_mri.png", "abdomen_ct.jpg", "echo.dcm", "xray.jpeg"}

	for seed := int64(1); seed <= 40; seed++ {
		rnd := SeededRandom(seed)()
		fx := fixtures[int(seed)%len(fixtures)]
		name := names[int(seed)%len(names)]

		out := a.Analyze(pixelsOf(fx), FileInfo{name, 50_000}, rnd)
		require.True(t, out.Classification.Valid, "fixture %d name %s", int(seed)%len(fixtures), name)

		r := out.Report
		assert.GreaterOrEqual(t, r.Confidence, 60)
		assert.LessOrEqual(t, r.Confidence, 98)
		require.NotEmpty(t, r.Findings)
		assert.Contains(t, NormalFindings(out.Classification.BodyPart), r.Findings[0])
		assert.LessOrEqual(t, len(r.Findings), 3)
		assert.Contains(t, BodyParts, out.Classification.BodyPart)

		if r.Severity == SeverityModerate {
			assert.Greater(t, AbnormalityScore(out.Characteristics), 0.4)
		}
		if !slices.ContainsFunc(r.Findings, func(f string) bool {
			for _, m := range severityMarkers {
				if strings.Contains(f, m) {
					return true
				}
			}
			return false
		}) {
			assert.Equal(t, SeverityNormal, r.Severity)
		}
	}
}

func TestAnalyzer_UnsupportedExtensionAlwaysInvalid(t *testing.T) {
	a := NewAnalyzer(defaults())
	for _, name := range []string{"chest_xray.gif", "scan.webp", "scan.png.txt"} {
		out := a.Analyze(pixelsOf(testhelpers.ChestXRay()), FileInfo{name, 500_000}, draws(t))
		assert.False(t, out.Classification.Valid, name)
	}
}

func TestAnalyzer_SmallFileAlwaysInvalid(t *testing.T) {
	a := NewAnalyzer(defaults())
	out := a.Analyze(pixelsOf(testhelpers.ChestXRay()), FileInfo{"chest_xray.png", 9_999}, draws(t))
	assert.False(t, out.Classification.Valid)
}

func TestRandomFromSeed(t *testing.T) {
	a, b := RandomFromSeed(9)(), RandomFromSeed(9)()
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}

	u := RandomFromSeed(0)()
	for i := 0; i < 100; i++ {
		v := u.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}
