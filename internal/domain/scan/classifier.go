package scan

import (
	"strings"

	"medscan-server-go/internal/platform/config"
)

type weightedPart struct {
	part   BodyPart
	weight float64
}

// bodyPartWeights holds the cumulative draw order per modality. Modalities
// missing here draw uniformly from BodyParts.
var bodyPartWeights = map[ScanType][]weightedPart{
	ScanTypeXRay: {
		{BodyPartChest, 0.4},
		{BodyPartExtremities, 0.3},
		{BodyPartSpine, 0.2},
		{BodyPartAbdomen, 0.1},
	},
	ScanTypeMRI: {
		{BodyPartBrain, 0.4},
		{BodyPartSpine, 0.3},
		{BodyPartHeart, 0.2},
		{BodyPartAbdomen, 0.1},
	},
	ScanTypeCT: {
		{BodyPartChest, 0.3},
		{BodyPartAbdomen, 0.3},
		{BodyPartBrain, 0.2},
		{BodyPartHeart, 0.2},
	},
}

var nameHints = []struct {
	tokens []string
	scan   ScanType
}{
	{[]string{"xray", "x-ray"}, ScanTypeXRay},
	{[]string{"mri"}, ScanTypeMRI},
	{[]string{"ct", "cat"}, ScanTypeCT},
	{[]string{"ultrasound", "echo"}, ScanTypeUltrasound},
}

// Classifier decides whether characteristics look like a medical scan and, if
// so, which modality and body part.
type Classifier struct {
	validity config.ValidityThresholds
	modality config.ModalityThresholds
}

func NewClassifier(th config.ThresholdConfig) *Classifier {
	return &Classifier{validity: th.Validity, modality: th.Modality}
}

// Classify applies the validity rule, then resolves the scan type and draws a
// body part from rnd. The body part is a weighted draw; no anatomical model
// stands behind it.
func (c *Classifier) Classify(ch Characteristics, file FileInfo, rnd Random) Classification {
	if !c.IsValid(ch, file) {
		return Classification{}
	}
	scanType := c.ScanType(ch, file.Name)
	return Classification{
		Valid:    true,
		ScanType: scanType,
		BodyPart: c.BodyPart(scanType, rnd),
	}
}

// IsValid requires an accepted extension, a grayscale look, enough contrast,
// moderate brightness and a reasonably large file.
func (c *Classifier) IsValid(ch Characteristics, file FileInfo) bool {
	return c.hasValidExtension(file.Name) &&
		ch.HasGrayscaleLook &&
		ch.Contrast > c.validity.MinContrast &&
		ch.Brightness < c.validity.MaxBrightness &&
		file.Size > c.validity.MinFileSize
}

func (c *Classifier) hasValidExtension(name string) bool {
	name = strings.ToLower(name)
	for _, ext := range c.validity.Extensions {
		if strings.HasSuffix(name, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// ScanType prefers a hint in the file name and falls back to pixel cutoffs.
func (c *Classifier) ScanType(ch Characteristics, fileName string) ScanType {
	name := strings.ToLower(fileName)
	for _, hint := range nameHints {
		for _, token := range hint.tokens {
			if strings.Contains(name, token) {
				return hint.scan
			}
		}
	}

	m := c.modality
	switch {
	case ch.IsDicomLike && ch.Contrast > m.XRayMinContrast:
		return ScanTypeXRay
	case ch.Brightness < m.MRIMaxBrightness && ch.Contrast > m.MRIMinContrast:
		return ScanTypeMRI
	case ch.Brightness > m.CTMinBrightness && ch.Contrast > m.CTMinContrast:
		return ScanTypeCT
	default:
		return ScanTypeGeneric
	}
}

// BodyPart makes exactly one draw from rnd.
func (c *Classifier) BodyPart(scanType ScanType, rnd Random) BodyPart {
	weights, ok := bodyPartWeights[scanType]
	if !ok {
		return BodyParts[pick(rnd, len(BodyParts))]
	}

	r := rnd.Float64()
	var cumulative float64
	for _, w := range weights[:len(weights)-1] {
		cumulative += w.weight
		if r < cumulative {
			return w.part
		}
	}
	return weights[len(weights)-1].part
}
