package store

import (
	"context"
	"strings"
	"time"

	"medscan-server-go/internal/domain/analysis"
	"medscan-server-go/internal/platform/config"
	platformerrors "medscan-server-go/internal/platform/errors"
	"medscan-server-go/internal/platform/logging"
	"medscan-server-go/internal/platform/observability"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"

	defaultTTL     = 24 * time.Hour
	defaultCleanup = 5 * time.Minute
)

// New opens the driver named by cfg.Driver and wraps it with metrics and
// logging.
func New(ctx context.Context, cfg config.StoreConfig, metrics *observability.Metrics, logger *logging.Logger) (analysis.Store, error) {
	ttl := config.Duration(cfg.TTL, defaultTTL)
	driver := strings.ToLower(cfg.Driver)

	var (
		s   analysis.Store
		err error
	)
	switch driver {
	case "", DriverMemory:
		driver = DriverMemory
		s = NewMemoryStore(ttl)
	case DriverSQLite:
		s, err = OpenSQLiteStore(cfg.SQLite.DSN, ttl)
	case DriverRedis:
		s, err = NewRedisStore(ctx, cfg.Redis, ttl)
	default:
		return nil, platformerrors.New(platformerrors.KindConfig, "store.new", "unsupported store driver "+cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	logger.InfoTag(logging.TagStore, "result store ready driver=%s ttl=%s", driver, ttl)
	return Instrument(s, driver, metrics, logger), nil
}

// Instrumented records every call of the wrapped store.
type Instrumented struct {
	analysis.Store
	driver  string
	metrics *observability.Metrics
	logger  *logging.Logger
}

func Instrument(s analysis.Store, driver string, metrics *observability.Metrics, logger *logging.Logger) *Instrumented {
	return &Instrumented{Store: s, driver: driver, metrics: metrics, logger: logger}
}

// Driver names the wrapped backend.
func (i *Instrumented) Driver() string {
	return i.driver
}

// Unwrap returns the wrapped store.
func (i *Instrumented) Unwrap() analysis.Store {
	return i.Store
}

func (i *Instrumented) record(op string, err error) {
	i.metrics.RecordStoreOperation(i.driver, op, err)
	if err != nil && !platformerrors.IsKind(err, platformerrors.KindNotFound) {
		i.logger.ErrorTag(logging.TagStore, "%s %s: %v", i.driver, op, err)
	}
}

func (i *Instrumented) Save(ctx context.Context, result *analysis.AnalysisResult) error {
	err := i.Store.Save(ctx, result)
	i.record("save", err)
	return err
}

func (i *Instrumented) Get(ctx context.Context, id string) (*analysis.AnalysisResult, error) {
	res, err := i.Store.Get(ctx, id)
	i.record("get", err)
	return res, err
}

func (i *Instrumented) List(ctx context.Context) ([]*analysis.AnalysisResult, error) {
	res, err := i.Store.List(ctx)
	i.record("list", err)
	return res, err
}

func (i *Instrumented) Remove(ctx context.Context, id string) error {
	err := i.Store.Remove(ctx, id)
	i.record("remove", err)
	return err
}

func (i *Instrumented) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := i.Store.CleanupExpired(ctx, now)
	i.record("cleanup", err)
	if n > 0 {
		i.logger.DebugTag(logging.TagStore, "%s dropped %d expired results", i.driver, n)
	}
	return n, err
}

func (i *Instrumented) Stats(ctx context.Context) (analysis.Stats, error) {
	st, err := i.Store.Stats(ctx)
	i.record("stats", err)
	return st, err
}

// RunCleanup calls CleanupExpired every interval until ctx is done.
func RunCleanup(ctx context.Context, s analysis.Store, interval time.Duration) {
	if interval <= 0 {
		interval = defaultCleanup
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			_, _ = s.CleanupExpired(ctx, now)
		}
	}
}
