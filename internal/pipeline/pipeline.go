package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/weatherdesk/degreeday/internal/domain"
	"github.com/weatherdesk/degreeday/internal/observability"
)

// BatchExtractor reads up to batchSize raw messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Processor converts a raw message into a degree-day record.
type Processor interface {
	Process(ctx context.Context, raw domain.RawEvent) (domain.DegreeDayRecord, error)
}

// RecordStore persists records and serves run-level queries over them.
type RecordStore interface {
	InsertBatch(ctx context.Context, records []domain.DegreeDayRecord) (int, error)
	Snapshot(ctx context.Context, model string) ([]domain.DegreeDayRecord, error)
	LatestRun(ctx context.Context, model string) (string, []domain.DegreeDayRecord, error)
}

// Reporter writes reports to the destination.
type Reporter interface {
	PublishBatch(ctx context.Context, reports []domain.Report) error
}

// Pipeline orchestrates the extract-aggregate-store-report loop. Each batch
// is stored atomically before any report is derived, so every published
// summary and delta reflects persisted state.
type Pipeline struct {
	extractor  BatchExtractor
	processor  Processor
	store      RecordStore
	reporter   Reporter
	comparator domain.Comparator
	normals    *domain.NormalSet
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
	batchSize  int
}

// New creates a Pipeline with the given stages and observability. Pass nil
// normals to disable anomaly and summary reports; degree-day and run-delta
// reports are still produced.
func New(e BatchExtractor, p Processor, s RecordStore, r Reporter, cmp domain.Comparator, normals *domain.NormalSet, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:  e,
		processor:  p,
		store:      s,
		reporter:   r,
		comparator: cmp,
		normals:    normals,
		logger:     logger,
		metrics:    metrics,
		batchSize:  batchSize,
	}
}

// CheckReadiness returns nil if the pipeline has processed at least one batch,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any fields yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-aggregate-store-report cycle. Returns false
// if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.FieldsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	published, ok := p.aggregateAndReport(ctx, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if published > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// aggregateAndReport processes each message in the batch, merges the
// resulting records into the store, derives run-level reports, publishes
// them, and commits offsets. Returns the number of published reports and
// false if the pipeline should stop.
func (p *Pipeline) aggregateAndReport(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	records := make([]domain.DegreeDayRecord, 0, len(rawBatch))
	successfulRaws := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		rec, err := p.processor.Process(ctx, raw)
		if err != nil {
			p.logger.Warn("field processing failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.ProcessErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		records = append(records, rec)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(records) == 0 {
		return 0, true
	}

	inserted, err := p.store.InsertBatch(ctx, records)
	if err != nil {
		p.logger.Error("store batch failed", "error", err, "batch_size", len(records))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
	}
	if dropped := len(records) - inserted; dropped > 0 {
		p.metrics.DuplicatesDropped.Add(float64(dropped))
	}

	reports := p.buildReports(ctx, records)

	if err := p.reporter.PublishBatch(ctx, reports); err != nil {
		// Records are already stored and inserts are idempotent, so a
		// redelivery after this failure only re-publishes reports.
		p.logger.Error("publish batch failed", "error", err, "report_count", len(reports))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.ReportsProduced.Add(float64(len(reports)))

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}

	return len(reports), true
}

// buildReports derives the outgoing reports for a stored batch: one
// degree-day report per new record, then per affected model a latest-run
// summary with per-day anomalies, a cumulative season curve, and a
// run-to-run delta.
func (p *Pipeline) buildReports(ctx context.Context, records []domain.DegreeDayRecord) []domain.Report {
	reports := make([]domain.Report, 0, len(records))
	modelSet := make(map[string]struct{})
	for _, rec := range records {
		reports = append(reports, domain.Report{
			Kind:    domain.ReportDegreeDay,
			Model:   rec.Model,
			RunID:   rec.RunID,
			Payload: rec,
		})
		modelSet[rec.Model] = struct{}{}
	}

	models := make([]string, 0, len(modelSet))
	for m := range modelSet {
		models = append(models, m)
	}
	sort.Strings(models)

	for _, model := range models {
		reports = append(reports, p.modelReports(ctx, model)...)
	}
	return reports
}

func (p *Pipeline) modelReports(ctx context.Context, model string) []domain.Report {
	var reports []domain.Report

	runID, latest, err := p.store.LatestRun(ctx, model)
	if err != nil {
		p.logger.Error("latest run query failed", "model", model, "error", err)
		return nil
	}

	if p.normals != nil {
		for _, rec := range latest {
			anomaly, err := p.comparator.Compare(rec, p.normals)
			if err != nil {
				p.logger.Debug("anomaly unavailable", "model", model,
					"date", rec.Date.String(), "error", err)
				continue
			}
			reports = append(reports, domain.Report{
				Kind:    domain.ReportAnomaly,
				Model:   model,
				RunID:   runID,
				Payload: anomaly,
			})
		}

		summary, err := p.comparator.Summarize(latest, p.normals)
		if err != nil {
			p.logger.Debug("run summary unavailable", "model", model, "run_id", runID, "error", err)
		} else {
			reports = append(reports, domain.Report{
				Kind:    domain.ReportRunSummary,
				Model:   model,
				RunID:   runID,
				Payload: summary,
			})
		}
	}

	snapshot, err := p.store.Snapshot(ctx, model)
	if err != nil {
		p.logger.Error("snapshot query failed", "model", model, "error", err)
		return reports
	}

	if p.normals != nil && len(latest) > 0 {
		if year, ok := domain.SeasonStartYear(latest[len(latest)-1].Date); ok {
			points, err := domain.SeasonAccumulation(snapshot, p.normals, year)
			if err != nil {
				p.logger.Debug("season curve unavailable", "model", model, "error", err)
			} else {
				reports = append(reports, domain.Report{
					Kind:    domain.ReportSeason,
					Model:   model,
					RunID:   runID,
					Payload: domain.SeasonCurve{StartYear: year, Points: points},
				})
			}
		}
	}

	delta, err := domain.ComputeRunDelta(snapshot)
	switch {
	case errors.Is(err, domain.ErrInsufficientHistory), errors.Is(err, domain.ErrInsufficientOverlap):
		p.logger.Debug("run delta unavailable", "model", model, "error", err)
	case err != nil:
		p.logger.Error("run delta failed", "model", model, "error", err)
	default:
		reports = append(reports, domain.Report{
			Kind:    domain.ReportRunDelta,
			Model:   model,
			RunID:   delta.LatestRun,
			Payload: delta,
		})
	}
	return reports
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
