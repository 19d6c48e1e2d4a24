package eventbus

import "time"

// Analysis lifecycle topics.
const (
	EventAnalysisCompleted = "analysis:completed"
	EventAnalysisInvalid   = "analysis:invalid"
	EventAnalysisFailed    = "analysis:failed"
	EventAnalysisRemoved   = "analysis:removed"
)

// AnalysisTopics lists every topic carrying an AnalysisEvent.
var AnalysisTopics = []string{
	EventAnalysisCompleted,
	EventAnalysisInvalid,
	EventAnalysisFailed,
	EventAnalysisRemoved,
}

// AnalysisEvent is the payload of every analysis topic. AnalysisID is empty
// for failed analyses, which never receive an id.
type AnalysisEvent struct {
	Type       string    `json:"type"`
	AnalysisID string    `json:"analysisId,omitempty"`
	FileName   string    `json:"fileName"`
	ScanType   string    `json:"scanType,omitempty"`
	BodyPart   string    `json:"bodyPart,omitempty"`
	Severity   string    `json:"severity,omitempty"`
	Confidence int       `json:"confidence"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}
