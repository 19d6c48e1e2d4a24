package analysis

import (
	"encoding/json"
	"fmt"
	"time"

	"medscan-server-go/internal/domain/scan"
)

// TimeLayout is the wire format of uploadedAt: UTC ISO-8601 with
// milliseconds, as a browser's Date.toISOString produces.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Result statuses.
const (
	StatusCompleted = "completed"
	StatusInvalid   = "invalid"
)

// Result priorities.
const (
	PriorityHigh    = "high"
	PriorityMedium  = "medium"
	PriorityLow     = "low"
	PriorityInvalid = "invalid"
)

// FileMeta describes the uploaded file. LastModified is in Unix milliseconds.
type FileMeta struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
	LastModified int64  `json:"lastModified"`
}

// AnalysisResult is the immutable outcome of analysing one upload.
type AnalysisResult struct {
	ID                   string               `json:"id"`
	IsValidMedicalScan   bool                 `json:"isValidMedicalScan"`
	ScanType             *scan.ScanType       `json:"scanType"`
	BodyPart             *scan.BodyPart       `json:"bodyPart"`
	Confidence           int                  `json:"confidence"`
	Findings             []string             `json:"findings"`
	Severity             scan.Severity        `json:"severity"`
	Recommendations      []string             `json:"recommendations"`
	ImageCharacteristics scan.Characteristics `json:"imageCharacteristics"`
	File                 FileMeta             `json:"file"`
	UploadedAt           time.Time            `json:"uploadedAt"`
}

func newResult(id string, uploadedAt time.Time, file FileMeta, out scan.Outcome) *AnalysisResult {
	r := &AnalysisResult{
		ID:                   id,
		IsValidMedicalScan:   out.Classification.Valid,
		Confidence:           out.Report.Confidence,
		Findings:             out.Report.Findings,
		Severity:             out.Report.Severity,
		Recommendations:      out.Report.Recommendations,
		ImageCharacteristics: out.Characteristics,
		File:                 file,
		UploadedAt:           uploadedAt.UTC().Truncate(time.Millisecond),
	}
	if out.Classification.Valid {
		st, bp := out.Classification.ScanType, out.Classification.BodyPart
		r.ScanType, r.BodyPart = &st, &bp
	}
	return r
}

// Status is "completed" for valid scans and "invalid" otherwise.
func (r *AnalysisResult) Status() string {
	if r.IsValidMedicalScan {
		return StatusCompleted
	}
	return StatusInvalid
}

// Priority ranks a result for review by its severity.
func (r *AnalysisResult) Priority() string {
	if !r.IsValidMedicalScan {
		return PriorityInvalid
	}
	switch r.Severity {
	case scan.SeverityModerate:
		return PriorityHigh
	case scan.SeverityMild:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Summary is a one-line description for list views.
func (r *AnalysisResult) Summary() string {
	if !r.IsValidMedicalScan || r.ScanType == nil || r.BodyPart == nil {
		return "The uploaded file does not appear to be a valid medical scan"
	}
	return fmt.Sprintf("%s of %s analyzed with %d%% confidence", *r.ScanType, *r.BodyPart, r.Confidence)
}

type resultAlias AnalysisResult

type resultJSON struct {
	*resultAlias
	UploadedAt string `json:"uploadedAt"`
}

func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		resultAlias: (*resultAlias)(&r),
		UploadedAt:  r.UploadedAt.UTC().Format(TimeLayout),
	})
}

func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	aux := resultJSON{resultAlias: (*resultAlias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.UploadedAt == "" {
		r.UploadedAt = time.Time{}
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, aux.UploadedAt)
	if err != nil {
		return err
	}
	r.UploadedAt = t.UTC()
	return nil
}
