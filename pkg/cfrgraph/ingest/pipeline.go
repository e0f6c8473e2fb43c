package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/ecfr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/store"
)

const tracerName = "github.com/cognicore/cfrgraph/pkg/cfrgraph/ingest"

// Options configures a Pipeline. Zero values select defaults.
type Options struct {
	// DetailedTitles is how many titles, in upstream order, get the full
	// document, structure and corrections treatment. Zero or less means all.
	DetailedTitles int
	Estimator      Estimator
	Associator     Associator
	Random         Random
	NewID          IDFunc
	Now            func() time.Time
	Logger         *slog.Logger
	Tracer         trace.Tracer
}

// Pipeline rebuilds the entity graph from a Source into a Store:
// agencies → titles (+ attribution) → detailed titles → estimates.
type Pipeline struct {
	source ecfr.Source
	store  store.Store
	opts   Options
	log    *slog.Logger
}

// NewPipeline creates an ingestion pipeline reading from src and writing to st.
func NewPipeline(src ecfr.Source, st store.Store, opts Options) *Pipeline {
	if opts.Random == nil {
		opts.Random = NewRandom(0)
	}
	if opts.NewID == nil {
		opts.NewID = NewULIDs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.Associator.Tiers == nil {
		opts.Associator = NewAssociator()
	}
	opts.Estimator = opts.Estimator.defaults()
	return &Pipeline{source: src, store: st, opts: opts, log: opts.Logger}
}

// RunReport summarizes one ingestion run.
type RunReport struct {
	RunID          string
	StartedAt      time.Time
	Duration       time.Duration
	Agencies       int
	UnknownAgency  int
	Titles         int
	DetailedTitles int
	Sections       int
	Changes        int
	Synthetic      int
	Estimated      int
	// Failed lists the numbers of titles whose detailed processing panicked.
	Failed         []string
}

// Run performs a full rebuild. Upstream failures degrade to fallbacks; only
// store failures and cancellation abort the run.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{RunID: uuid.NewString(), StartedAt: p.opts.Now()}
	ctx, span := p.opts.Tracer.Start(ctx, "ingest.run", trace.WithAttributes(attribute.String("run.id", report.RunID)))
	defer span.End()
	log := p.log.With("run_id", report.RunID)

	err := p.run(ctx, log, &report)
	report.Duration = p.opts.Now().Sub(report.StartedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}
	log.Info("ingestion complete",
		"agencies", report.Agencies, "titles", report.Titles,
		"detailed", report.DetailedTitles, "sections", report.Sections,
		"changes", report.Changes, "estimated", report.Estimated,
		"failed", len(report.Failed), "duration", report.Duration)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, report *RunReport) error {
	if err := p.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}

	agencies, err := p.ingestAgencies(ctx, log)
	if err != nil {
		return err
	}
	report.Agencies = len(agencies)

	titles, unknown, err := p.ingestTitles(ctx, log, agencies)
	if err != nil {
		return err
	}
	report.Titles = len(titles)
	report.UnknownAgency = unknown

	detailed := titles
	if n := p.opts.DetailedTitles; n > 0 && n < len(detailed) {
		detailed = detailed[:n]
	}
	for _, t := range detailed {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats, err := p.safeProcess(ctx, log, t)
		if err != nil {
			if errors.Is(err, errTitlePanic) {
				log.Error("title processing failed", "title", t.Number, "error", err)
				report.Failed = append(report.Failed, t.Number)
				continue
			}
			return err
		}
		report.DetailedTitles++
		report.Sections += stats.sections
		report.Changes += stats.changes
		report.Synthetic += stats.synthetic
	}

	estimated, err := p.estimate(ctx)
	if err != nil {
		return err
	}
	report.Estimated = estimated
	return nil
}

func (p *Pipeline) ingestAgencies(ctx context.Context, log *slog.Logger) ([]model.Agency, error) {
	ctx, span := p.opts.Tracer.Start(ctx, "ingest.agencies")
	defer span.End()

	resp, err := p.source.Agencies(ctx)
	if err != nil {
		log.Warn("agency directory unavailable, continuing without agencies", "error", err)
		span.RecordError(err)
	}
	agencies, err := IngestAgencies(ctx, p.store, resp.Agencies)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("agencies", len(agencies)))
	log.Info("agencies ingested", "count", len(agencies))
	return agencies, nil
}

// ingestTitles stores every title attributed to an agency. The agency set is
// frozen before the first attribution; placeholder agencies are not
// candidates for later titles.
func (p *Pipeline) ingestTitles(ctx context.Context, log *slog.Logger, agencies []model.Agency) ([]model.Title, int, error) {
	ctx, span := p.opts.Tracer.Start(ctx, "ingest.titles")
	defer span.End()

	resp, err := p.source.Titles(ctx)
	if err != nil {
		log.Warn("title list unavailable, continuing without titles", "error", err)
		span.RecordError(err)
	}

	var titles []model.Title
	unknown := make(map[string]bool)
	tiers := make(map[string]int)
	for _, payload := range resp.Titles {
		t := BuildTitle(payload, log)
		if t.Number == "" {
			log.Warn("skipping title without a number", "name", t.Name)
			continue
		}
		agency, tier, ok := p.opts.Associator.Associate(t, agencies)
		if !ok {
			agency, tier = UnknownAgency(t.Number), FallbackTier
			if !unknown[agency.ID] {
				if err := p.store.UpsertAgency(ctx, agency); err != nil {
					return nil, 0, fmt.Errorf("store placeholder agency: %w", err)
				}
				unknown[agency.ID] = true
			}
		}
		tiers[tier]++
		t.AgencyID = agency.ID
		if err := p.store.UpsertTitle(ctx, t); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, 0, fmt.Errorf("store title %s: %w", t.Number, err)
		}
		log.Debug("title attributed", "title", t.Number, "agency", agency.ID, "tier", tier)
		titles = append(titles, t)
	}
	span.SetAttributes(attribute.Int("titles", len(titles)), attribute.Int("unknown_agencies", len(unknown)))
	log.Info("titles ingested", "count", len(titles), "by_tier", tiers)
	return titles, len(unknown), nil
}

var errTitlePanic = errors.New("title processing panicked")

type titleStats struct {
	sections  int
	changes   int
	synthetic int
}

// safeProcess isolates one title: a panic is converted to errTitlePanic so
// the run can move on to the next title.
func (p *Pipeline) safeProcess(ctx context.Context, log *slog.Logger, t model.Title) (stats titleStats, err error) {
	ctx, span := p.opts.Tracer.Start(ctx, "ingest.title", trace.WithAttributes(attribute.String("title.number", t.Number)))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: title %s: %v", errTitlePanic, t.Number, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	return p.processTitle(ctx, log.With("title", t.Number), t)
}

// processTitle runs document → structure → corrections for one title and
// saves it with its change total and word count.
func (p *Pipeline) processTitle(ctx context.Context, log *slog.Logger, t model.Title) (titleStats, error) {
	var stats titleStats
	date := requestDate(t, p.opts.Now())

	var history []model.HistoricalChange
	doc, err := p.source.FullDocument(ctx, t.Number, date)
	if err != nil {
		t.WordCount = p.opts.Estimator.Unfetched(p.opts.Random)
		t.WordCountKind = model.WordCountEstimated
		log.Warn("full document unavailable, estimating word count", "error", err, "estimate", t.WordCount)
	} else {
		parsed, perr := ParseDocument(t.ID, doc)
		if perr != nil {
			log.Warn("document not well-formed, sections skipped", "error", perr)
		}
		t.WordCount = parsed.WordCount
		t.WordCountKind = model.WordCountMeasured
		for _, ps := range parsed.Sections {
			if err := p.store.UpsertSection(ctx, ps.Section); err != nil {
				return stats, fmt.Errorf("store section %s: %w", ps.Section.ID, err)
			}
			history = append(history, HistoryChanges(ps.Section.ID, ps.History, p.opts.Random, p.opts.NewID)...)
		}
	}

	if root, err := p.source.Structure(ctx, t.Number, date); err != nil {
		log.Warn("structure unavailable", "error", err)
	} else {
		existing, err := p.store.SectionsByTitle(ctx, t.ID)
		if err != nil {
			return stats, fmt.Errorf("load sections: %w", err)
		}
		res := ReconcileStructure(t.ID, root, existing)
		for _, s := range res.Sections {
			if err := p.store.UpsertSection(ctx, s); err != nil {
				return stats, fmt.Errorf("store section %s: %w", s.ID, err)
			}
		}
		log.Debug("structure reconciled", "created", res.Created, "updated", res.Updated, "nested", res.Nested)
	}

	sections, err := p.store.SectionsByTitle(ctx, t.ID)
	if err != nil {
		return stats, fmt.Errorf("load sections: %w", err)
	}
	stats.sections = len(sections)

	var corrections []model.HistoricalChange
	resp, err := p.source.Corrections(ctx, t.Number)
	switch {
	case err != nil || len(resp.Corrections) == 0:
		if err != nil {
			log.Warn("corrections unavailable, generating placeholders", "error", err)
		}
		corrections = SyntheticCorrections(t, sections, p.opts.Random, p.opts.Now(), p.opts.NewID)
		stats.synthetic = len(corrections)
	default:
		corrections = ImportCorrections(t, sections, resp.Corrections, p.opts.NewID, log)
	}

	for _, c := range append(history, corrections...) {
		if err := p.store.AddChange(ctx, c); err != nil {
			return stats, fmt.Errorf("store change %s: %w", c.ID, err)
		}
		stats.changes++
	}

	t.TotalChanges = stats.changes
	if err := p.store.UpsertTitle(ctx, t); err != nil {
		return stats, fmt.Errorf("store title %s: %w", t.Number, err)
	}
	log.Info("title processed", "sections", stats.sections, "changes", stats.changes,
		"synthetic", stats.synthetic, "word_count", t.WordCount)
	return stats, nil
}

// estimate fills in word counts for titles not processed in detail.
func (p *Pipeline) estimate(ctx context.Context) (int, error) {
	ctx, span := p.opts.Tracer.Start(ctx, "ingest.estimate")
	defer span.End()

	titles, err := p.store.ListTitles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list titles: %w", err)
	}
	estimated := p.opts.Estimator.Estimate(titles, p.opts.Random)
	for _, t := range estimated {
		if err := p.store.UpsertTitle(ctx, t); err != nil {
			return 0, fmt.Errorf("store estimate for title %s: %w", t.Number, err)
		}
	}
	span.SetAttributes(attribute.Int("estimated", len(estimated)))
	return len(estimated), nil
}
