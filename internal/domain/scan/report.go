package scan

import (
	"slices"
	"strings"

	"medscan-server-go/internal/platform/config"
)

// Confidence adjustments on top of the configured base.
const (
	anatomyBonus       = 15
	dicomBonus         = 10
	contrastBonus      = 5
	grayscaleBonus     = 5
	exposurePenalty    = 10
	lowContrastPenalty = 15

	contrastBonusAbove = 0.4
	underexposedBelow  = 30
	overexposedAbove   = 200
	lowContrastBelow   = 0.2
)

// Abnormality gate terms.
const (
	abnormalContrastAbove     = 0.5
	abnormalContrastWeight    = 0.3
	abnormalDarkBelow         = 80
	abnormalDarkWeight        = 0.2
	abnormalDarkRatioAbove    = 0.4
	abnormalDarkRatioWeight   = 0.2
	abnormalBrightRatioAbove  = 0.1
	abnormalBrightRatioWeight = 0.3
)

// Severity score terms.
const (
	severeContrastAbove  = 0.6
	severeContrastWeight = 0.3
	severeDarkBelow      = 60
	severeDarkWeight     = 0.3
	severeFindingsAbove  = 2
	severeFindingsWeight = 0.4
)

// Generator writes the synthetic report of a valid scan.
type Generator struct {
	th config.ReportThresholds
}

func NewGenerator(th config.ThresholdConfig) *Generator {
	return &Generator{th: th.Report}
}

// Generate builds the report. Random draws happen only while choosing
// findings.
func (g *Generator) Generate(ch Characteristics, part BodyPart, rnd Random) Report {
	findings := g.Findings(ch, part, rnd)
	severity := g.Severity(ch, findings)
	return Report{
		Confidence:      g.Confidence(ch),
		Findings:        findings,
		Severity:        severity,
		Recommendations: Recommendations(severity, part, findings),
	}
}

// Confidence scores image quality, clamped to the configured bounds.
func (g *Generator) Confidence(ch Characteristics) int {
	c := g.th.BaseConfidence
	if ch.HasAnatomicalStructures {
		c += anatomyBonus
	}
	if ch.IsDicomLike {
		c += dicomBonus
	}
	if ch.Contrast > contrastBonusAbove {
		c += contrastBonus
	}
	if ch.HasGrayscaleLook {
		c += grayscaleBonus
	}
	if ch.Brightness < underexposedBelow || ch.Brightness > overexposedAbove {
		c -= exposurePenalty
	}
	if ch.Contrast < lowContrastBelow {
		c -= lowContrastPenalty
	}
	return max(g.th.MinConfidence, min(g.th.MaxConfidence, c))
}

// AbnormalityScore weighs the signals that suggest something abnormal.
func AbnormalityScore(ch Characteristics) float64 {
	var score float64
	if ch.Contrast > abnormalContrastAbove {
		score += abnormalContrastWeight
	}
	if ch.Brightness < abnormalDarkBelow {
		score += abnormalDarkWeight
	}
	if ch.DarkRatio > abnormalDarkRatioAbove {
		score += abnormalDarkRatioWeight
	}
	if ch.BrightRatio > abnormalBrightRatioAbove {
		score += abnormalBrightRatioWeight
	}
	return score
}

// IsAbnormal reports whether abnormal findings should be drawn.
func (g *Generator) IsAbnormal(ch Characteristics) bool {
	return AbnormalityScore(ch) > g.th.AbnormalityCutoff
}

// Findings starts with one normal finding of part. Abnormal images add one
// or, with SecondFindingChance, two draws from the abnormal catalogue;
// repeated draws are dropped. Draw order: count, abnormal picks, normal pick.
func (g *Generator) Findings(ch Characteristics, part BodyPart, rnd Random) []string {
	var abnormal []string
	if g.IsAbnormal(ch) {
		count := 1
		if rnd.Float64() > 1-g.th.SecondFindingChance {
			count = 2
		}
		catalogue := AbnormalFindings(part)
		for i := 0; i < count; i++ {
			f := catalogue[pick(rnd, len(catalogue))]
			if !slices.Contains(abnormal, f) {
				abnormal = append(abnormal, f)
			}
		}
	}

	normal := NormalFindings(part)
	return append([]string{normal[pick(rnd, len(normal))]}, abnormal...)
}

// Severity is normal unless a finding carries a marker word, in which case
// the image statistics and the number of findings decide.
func (g *Generator) Severity(ch Characteristics, findings []string) Severity {
	if !hasMarker(findings) {
		return SeverityNormal
	}

	var score float64
	if ch.Contrast > severeContrastAbove {
		score += severeContrastWeight
	}
	if ch.Brightness < severeDarkBelow {
		score += severeDarkWeight
	}
	if len(findings) > severeFindingsAbove {
		score += severeFindingsWeight
	}

	switch {
	case score > g.th.SeverityModerate:
		return SeverityModerate
	case score > g.th.SeverityMild:
		return SeverityMild
	default:
		return SeverityNormal
	}
}

func hasMarker(findings []string) bool {
	for _, f := range findings {
		for _, m := range severityMarkers {
			if strings.Contains(f, m) {
				return true
			}
		}
	}
	return false
}

// Recommendations returns the severity's base lines followed by the body
// part follow-ups triggered by the findings.
func Recommendations(severity Severity, part BodyPart, findings []string) []string {
	recs := slices.Clone(severityRecommendations[severity])
	for _, f := range followUps {
		if part != f.part {
			continue
		}
		if slices.ContainsFunc(findings, func(s string) bool { return strings.Contains(s, f.marker) }) {
			recs = append(recs, f.recommendation)
		}
	}
	return recs
}
