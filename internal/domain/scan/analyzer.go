package scan

import (
	"medscan-server-go/internal/domain/image"
	"medscan-server-go/internal/platform/config"
)

// Outcome bundles the three pipeline stages' results for one image.
type Outcome struct {
	Characteristics Characteristics
	Classification  Classification
	Report          Report
}

// Analyzer chains extraction, classification and report generation. It holds
// only configuration and is safe for concurrent use.
type Analyzer struct {
	pixel      config.PixelThresholds
	classifier *Classifier
	generator  *Generator
}

func NewAnalyzer(th config.ThresholdConfig) *Analyzer {
	return &Analyzer{
		pixel:      th.Pixel,
		classifier: NewClassifier(th),
		generator:  NewGenerator(th),
	}
}

// Analyze runs the stages in order. Invalid scans short-circuit to
// InvalidReport without consuming any draw from rnd.
func (a *Analyzer) Analyze(px image.PixelBuffer, file FileInfo, rnd Random) Outcome {
	ch := Extract(px, a.pixel)
	cls := a.classifier.Classify(ch, file, rnd)
	if !cls.Valid {
		return Outcome{Characteristics: ch, Classification: cls, Report: InvalidReport()}
	}
	return Outcome{
		Characteristics: ch,
		Classification:  cls,
		Report:          a.generator.Generate(ch, cls.BodyPart, rnd),
	}
}
