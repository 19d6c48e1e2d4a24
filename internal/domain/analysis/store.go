package analysis

import (
	"context"
	"time"
)

// Store keeps the results of the current dashboard session. Get and Remove
// fail with a not_found error for unknown or expired ids.
type Store interface {
	Save(ctx context.Context, result *AnalysisResult) error
	Get(ctx context.Context, id string) (*AnalysisResult, error)
	// List returns live results, newest upload first.
	List(ctx context.Context) ([]*AnalysisResult, error)
	Remove(ctx context.Context, id string) error
	// CleanupExpired drops results older than the store's TTL and reports
	// how many went.
	CleanupExpired(ctx context.Context, now time.Time) (int, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Stats counts the stored results.
type Stats struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"bySeverity"`
	ByStatus   map[string]int `json:"byStatus"`
	ByPriority map[string]int `json:"byPriority"`
}

// Summarize computes Stats over results.
func Summarize(results []*AnalysisResult) Stats {
	st := Stats{
		Total:      len(results),
		BySeverity: map[string]int{},
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
	}
	for _, r := range results {
		st.BySeverity[string(r.Severity)]++
		st.ByStatus[r.Status()]++
		st.ByPriority[r.Priority()]++
	}
	return st
}
