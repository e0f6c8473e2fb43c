package cfrgraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/analytics"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/config"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/ecfr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/ingest"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/internalerr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/store"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/store/memstore"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/store/sqlite"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/summary"
)

// Engine ties a source, a store and the pipeline together behind one handle.
type Engine struct {
	cfg    config.Config
	store  store.Store
	source ecfr.Source
	client *ecfr.Client // nil when reading a snapshot
	logger *slog.Logger
	now    func() time.Time
}

// Options configures an Engine. Store and Source override what Config
// would build.
type Options struct {
	Config config.Config
	Store  store.Store
	Source ecfr.Source
	Logger *slog.Logger
	Now    func() time.Time
}

// Open validates the configuration and builds the store and source.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: opts.Config, store: opts.Store, source: opts.Source, logger: opts.Logger, now: opts.Now}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.source == nil {
		src, client, err := NewSource(opts.Config.API, e.logger)
		if err != nil {
			return nil, err
		}
		e.source, e.client = src, client
	}
	if e.store == nil {
		st, err := OpenStore(ctx, opts.Config.Store)
		if err != nil {
			return nil, err
		}
		e.store = st
	}
	return e, nil
}

// OpenStore opens the configured backend.
func OpenStore(ctx context.Context, cfg config.Store) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		st, err := sqlite.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open store %s: %w", cfg.Path, err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", internalerr.ErrInvalidConfig, cfg.Driver)
	}
}

// NewSource returns a snapshot reader when SnapshotDir is set, otherwise an
// HTTP client. The client is also returned so callers can take snapshots.
func NewSource(cfg config.API, logger *slog.Logger) (ecfr.Source, *ecfr.Client, error) {
	if cfg.SnapshotDir != "" {
		return ecfr.FileSource{Dir: cfg.SnapshotDir}, nil, nil
	}
	client, err := ecfr.NewClient(ecfr.ClientOptions{
		BaseURL:           cfg.BaseURL,
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		CacheSize:         cfg.CacheSize,
		Logger:            logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store exposes the query surface.
func (e *Engine) Store() store.Store {
	return e.store
}

// Ingest rebuilds the graph from the source.
func (e *Engine) Ingest(ctx context.Context) (ingest.RunReport, error) {
	p := ingest.NewPipeline(e.source, e.store, ingest.Options{
		DetailedTitles: e.cfg.Pipeline.DetailedTitles,
		Estimator: ingest.Estimator{
			Default: e.cfg.Pipeline.DefaultWordCount,
			Min:     e.cfg.Pipeline.MinEstimatedWordCount,
		},
		Random: ingest.NewRandom(e.cfg.Pipeline.Seed),
		Now:    e.now,
		Logger: e.logger,
	})
	return p.Run(ctx)
}

// Snapshot downloads the payloads ingestion reads into dir. With no titles
// given it takes the first pipeline.detailed_titles titles of the upstream
// list.
func (e *Engine) Snapshot(ctx context.Context, dir string, titles []string) error {
	if e.client == nil {
		return fmt.Errorf("%w: snapshots need the HTTP source", internalerr.ErrInvalidConfig)
	}
	if len(titles) == 0 {
		resp, err := e.client.Titles(ctx)
		if err != nil {
			return fmt.Errorf("list titles: %w", err)
		}
		for _, t := range resp.Titles {
			if n := e.cfg.Pipeline.DetailedTitles; n > 0 && len(titles) >= n {
				break
			}
			titles = append(titles, t.Number())
		}
	}
	return ecfr.WriteSnapshot(ctx, e.client, dir, titles, e.now().Format(ingest.DateLayout), e.logger)
}

// Analyzer loads the stored graph for rollups.
func (e *Engine) Analyzer(ctx context.Context) (*analytics.Analyzer, error) {
	g, err := analytics.LoadGraph(ctx, e.store)
	if err != nil {
		return nil, err
	}
	return analytics.NewAnalyzer(g), nil
}

// ReportKind names a rollup.
type ReportKind string

const (
	AgencyWords    ReportKind = "agency-words"
	TitleWords     ReportKind = "title-words"
	SectionWords   ReportKind = "section-words"
	AgencyChanges  ReportKind = "agency-changes"
	TitleChanges   ReportKind = "title-changes"
	SectionChanges ReportKind = "section-changes"
)

// ReportKinds lists every supported rollup.
var ReportKinds = []ReportKind{AgencyWords, TitleWords, SectionWords, AgencyChanges, TitleChanges, SectionChanges}

// Report computes one rollup as flat rows, truncated to top when top > 0.
// Section rollups need titleID.
func (e *Engine) Report(ctx context.Context, kind ReportKind, titleID string, top int) ([]analytics.Row, error) {
	if (kind == SectionWords || kind == SectionChanges) && titleID == "" {
		return nil, fmt.Errorf("%w: %s report needs a title", internalerr.ErrInvalidInput, kind)
	}
	a, err := e.Analyzer(ctx)
	if err != nil {
		return nil, err
	}
	switch kind {
	case AgencyWords:
		return analytics.Rows(analytics.Top(a.WordCountsByAgency(), top)), nil
	case TitleWords:
		return analytics.Rows(analytics.Top(a.WordCountsByTitle(), top)), nil
	case SectionWords:
		return analytics.Rows(analytics.Top(a.WordCountsBySection(titleID), top)), nil
	case AgencyChanges:
		return analytics.Rows(analytics.Top(a.ChangeFrequencyByAgency(), top)), nil
	case TitleChanges:
		return analytics.Rows(analytics.Top(a.ChangeFrequencyByTitle(), top)), nil
	case SectionChanges:
		return analytics.Rows(analytics.Top(a.ChangeFrequencyBySection(titleID), top)), nil
	default:
		return nil, fmt.Errorf("%w: unknown report %q", internalerr.ErrInvalidInput, kind)
	}
}

// Summary renders the markdown digest of the stored graph.
func (e *Engine) Summary(ctx context.Context, w io.Writer) error {
	a, err := e.Analyzer(ctx)
	if err != nil {
		return err
	}
	return summary.Render(w, summary.Build(a, e.now()))
}
