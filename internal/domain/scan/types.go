package scan

// ScanType is the imaging modality assigned to a valid scan.
type ScanType string

const (
	ScanTypeXRay       ScanType = "X-ray"
	ScanTypeMRI        ScanType = "MRI"
	ScanTypeCT         ScanType = "CT Scan"
	ScanTypeUltrasound ScanType = "Ultrasound"
	// ScanTypeGeneric is used when neither the file name nor the pixels
	// point at a modality.
	ScanTypeGeneric ScanType = "Medical Scan"
)

// BodyPart is the anatomical region attributed to a scan.
type BodyPart string

const (
	BodyPartChest       BodyPart = "Chest"
	BodyPartBrain       BodyPart = "Brain"
	BodyPartHeart       BodyPart = "Heart"
	BodyPartAbdomen     BodyPart = "Abdomen"
	BodyPartSpine       BodyPart = "Spine"
	BodyPartExtremities BodyPart = "Extremities"
)

// BodyParts lists every body part in canonical order.
var BodyParts = []BodyPart{
	BodyPartChest,
	BodyPartBrain,
	BodyPartHeart,
	BodyPartAbdomen,
	BodyPartSpine,
	BodyPartExtremities,
}

type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	// SeverityError marks the report of an invalid scan.
	SeverityError Severity = "error"
)

// Characteristics are the pixel statistics of one image. Ratios are in [0,1]
// and Brightness in [0,255].
type Characteristics struct {
	Brightness              float64 `json:"brightness"`
	Contrast                float64 `json:"contrast"`
	DarkRatio               float64 `json:"darkRatio"`
	BrightRatio             float64 `json:"brightRatio"`
	HasGrayscaleLook        bool    `json:"hasGrayscaleLook"`
	HasAnatomicalStructures bool    `json:"hasAnatomicalStructures"`
	IsDicomLike             bool    `json:"isDicomLike"`
}

// FileInfo is the file metadata the classifier looks at.
type FileInfo struct {
	Name string
	Size int64
}

// Classification is the classifier's verdict. ScanType and BodyPart are empty
// for invalid scans.
type Classification struct {
	Valid    bool
	ScanType ScanType
	BodyPart BodyPart
}

// Report is the synthetic reading of a scan.
type Report struct {
	Confidence      int
	Findings        []string
	Severity        Severity
	Recommendations []string
}

const (
	InvalidFinding        = "Invalid medical scan detected"
	InvalidRecommendation = "Please upload a valid medical scan (X-ray, MRI, CT, etc.)"
)

// InvalidReport is the fixed report attached to every invalid scan.
func InvalidReport() Report {
	return Report{
		Confidence:      0,
		Findings:        []string{InvalidFinding},
		Severity:        SeverityError,
		Recommendations: []string{InvalidRecommendation},
	}
}
