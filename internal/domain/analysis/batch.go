package analysis

import (
	"context"

	"golang.org/x/sync/errgroup"

	"medscan-server-go/internal/domain/image"
	platformerrors "medscan-server-go/internal/platform/errors"
	"medscan-server-go/internal/platform/logging"
)

// BatchItem is the outcome of one file of a batch. Exactly one of Result and
// Error is set.
type BatchItem struct {
	Index    int             `json:"index"`
	FileName string          `json:"fileName"`
	Result   *AnalysisResult `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Kind     string          `json:"kind,omitempty"`
}

// AnalyzeBatch analyses uploads concurrently, at most MaxConcurrency at a
// time. Items keep the order of uploads. A failing file never stops its
// siblings; the returned error is only set when ctx ends the batch early.
func (s *Service) AnalyzeBatch(ctx context.Context, uploads []image.Upload) ([]BatchItem, error) {
	items := make([]BatchItem, len(uploads))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, up := range uploads {
		items[i] = BatchItem{Index: i, FileName: up.Name}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Error = err.Error()
				items[i].Kind = string(platformerrors.KindDomain)
				return nil
			}
			res, err := s.Analyze(ctx, up)
			if err != nil {
				items[i].Error = err.Error()
				items[i].Kind = string(platformerrors.KindOf(err))
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if it.Result == nil {
			failed++
		}
	}
	s.logger.InfoTag(logging.TagAnalysis, "batch done files=%d failed=%d", len(items), failed)

	return items, ctx.Err()
}
