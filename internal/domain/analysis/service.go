package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"medscan-server-go/internal/domain/eventbus"
	"medscan-server-go/internal/domain/image"
	"medscan-server-go/internal/domain/scan"
	platformerrors "medscan-server-go/internal/platform/errors"
	"medscan-server-go/internal/platform/logging"
	"medscan-server-go/internal/platform/observability"
)

const defaultMaxConcurrency = 4

// Loader decodes uploads into pixels.
type Loader interface {
	Load(ctx context.Context, up image.Upload) (*image.Loaded, error)
}

// Publisher receives lifecycle events. *eventbus.Bus satisfies it.
type Publisher interface {
	PublishAsync(topic string, args ...any)
}

// Options wires a Service. Loader and Analyzer are required; the rest
// default to a uuid generator, the wall clock, the runtime random source and
// no store, publisher or metrics.
type Options struct {
	Loader         Loader
	Analyzer       *scan.Analyzer
	Random         scan.RandomFactory
	NewID          func() string
	Now            func() time.Time
	Store          Store
	Publisher      Publisher
	Metrics        *observability.Metrics
	Logger         *logging.Logger
	MaxConcurrency int
}

// Service runs the scan pipeline for uploads and keeps the session results.
type Service struct {
	loader      Loader
	analyzer    *scan.Analyzer
	random      scan.RandomFactory
	newID       func() string
	now         func() time.Time
	store       Store
	publisher   Publisher
	metrics     *observability.Metrics
	logger      *logging.Logger
	concurrency int
}

func NewService(opts Options) *Service {
	s := &Service{
		loader:      opts.Loader,
		analyzer:    opts.Analyzer,
		random:      opts.Random,
		newID:       opts.NewID,
		now:         opts.Now,
		store:       opts.Store,
		publisher:   opts.Publisher,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		concurrency: opts.MaxConcurrency,
	}
	if s.random == nil {
		s.random = scan.UniformRandom()
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultMaxConcurrency
	}
	return s
}

// Analyze runs Loader, Extractor, Classifier and Generator over up. Invalid
// scans are a successful outcome; only a load failure returns an error, and
// then no result is stored.
func (s *Service) Analyze(ctx context.Context, up image.Upload) (_ *AnalysisResult, err error) {
	ctx, end := observability.StartSpan(ctx, "analysis", "analyze")
	defer func() { end(err) }()
	defer s.metrics.TrackActive()()

	start := time.Now()
	loaded, err := s.loader.Load(ctx, up)
	if err != nil {
		if image.IsDecodeError(err) {
			s.metrics.RecordDecodeError()
		}
		s.metrics.RecordAnalysis("failed", "", "", 0, time.Since(start))
		s.logger.WarnTag(logging.TagAnalysis, "load failed name=%s: %v", up.Name, err)
		s.publish(eventbus.EventAnalysisFailed, eventbus.AnalysisEvent{
			FileName: up.Name,
			Error:    err.Error(),
		})
		return nil, err
	}

	size := up.Size
	if size <= 0 {
		size = loaded.Bytes
	}
	out := s.analyzer.Analyze(loaded.Pixels, scan.FileInfo{Name: up.Name, Size: size}, s.random())

	result := newResult(s.newID(), s.now(), FileMeta{
		Name:         up.Name,
		Size:         size,
		Type:         fileType(up, loaded.Format),
		LastModified: lastModified(up.LastModified),
	}, out)

	if s.store != nil {
		if err := s.store.Save(ctx, result); err != nil {
			// the caller still gets its result; only the session list misses it
			s.logger.ErrorTag(logging.TagAnalysis, "save %s: %v", result.ID, err)
		}
	}

	topic := eventbus.EventAnalysisCompleted
	if !result.IsValidMedicalScan {
		topic = eventbus.EventAnalysisInvalid
	}
	s.publish(topic, eventOf(result))

	elapsed := time.Since(start)
	s.metrics.RecordAnalysis(result.Status(), labelOf(result.ScanType), string(result.Severity), result.Confidence, elapsed)
	observability.RecordMetric(ctx, "analysis.confidence", float64(result.Confidence), map[string]string{
		"status": result.Status(),
	})
	s.logger.InfoTag(logging.TagAnalysis, "analyzed id=%s name=%s status=%s severity=%s confidence=%d took=%s",
		result.ID, up.Name, result.Status(), result.Severity, result.Confidence, elapsed.Round(time.Microsecond))

	return result, nil
}

// Get returns a stored result.
func (s *Service) Get(ctx context.Context, id string) (*AnalysisResult, error) {
	if s.store == nil {
		return nil, notFound(id)
	}
	return s.store.Get(ctx, id)
}

// List returns the session results, newest first.
func (s *Service) List(ctx context.Context) ([]*AnalysisResult, error) {
	if s.store == nil {
		return []*AnalysisResult{}, nil
	}
	return s.store.List(ctx)
}

// Remove deletes a stored result and announces it.
func (s *Service) Remove(ctx context.Context, id string) error {
	if s.store == nil {
		return notFound(id)
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	s.publish(eventbus.EventAnalysisRemoved, eventbus.AnalysisEvent{AnalysisID: id})
	return nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.store == nil {
		return Summarize(nil), nil
	}
	return s.store.Stats(ctx)
}

func (s *Service) publish(topic string, evt eventbus.AnalysisEvent) {
	if s.publisher == nil {
		return
	}
	evt.Type = topic
	evt.At = s.now().UTC()
	s.publisher.PublishAsync(topic, evt)
}

func eventOf(r *AnalysisResult) eventbus.AnalysisEvent {
	return eventbus.AnalysisEvent{
		AnalysisID: r.ID,
		FileName:   r.File.Name,
		ScanType:   labelOf(r.ScanType),
		BodyPart:   labelOf(r.BodyPart),
		Severity:   string(r.Severity),
		Confidence: r.Confidence,
	}
}

func labelOf[T ~string](v *T) string {
	if v == nil {
		return ""
	}
	return string(*v)
}

func notFound(id string) error {
	return platformerrors.New(platformerrors.KindNotFound, "analysis.get", "analysis "+id+" not found")
}

// fileType prefers the client's content type and falls back to the decoded
// format.
func fileType(up image.Upload, format string) string {
	if ct := strings.TrimSpace(up.ContentType); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if format == "" {
		return ""
	}
	return "image/" + format
}

func lastModified(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
