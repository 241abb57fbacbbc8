package pipeline

import (
	"context"
	"log/slog"

	"github.com/golang/geo/s2"

	"github.com/weatherdesk/degreeday/internal/domain"
	"github.com/weatherdesk/degreeday/internal/observability"
)

// FieldProcessor implements Processor: it parses a raw message into a
// temperature field, aggregates it over the analysis domain, and produces
// one degree-day record per forecast date.
type FieldProcessor struct {
	domainBox s2.Rect
	weights   domain.WeightSource
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewProcessor creates a FieldProcessor. Pass a nil weights source to run
// without demand weighting; records then carry unweighted values only.
func NewProcessor(domainBox s2.Rect, weights domain.WeightSource, logger *slog.Logger, metrics *observability.Metrics) *FieldProcessor {
	return &FieldProcessor{
		domainBox: domainBox,
		weights:   weights,
		logger:    logger,
		metrics:   metrics,
	}
}

func (p *FieldProcessor) Process(_ context.Context, raw domain.RawEvent) (domain.DegreeDayRecord, error) {
	field, err := domain.ParseRawField(raw)
	if err != nil {
		return domain.DegreeDayRecord{}, err
	}

	means, err := domain.AggregateField(field, p.domainBox, p.weights, p.logger)
	if err != nil {
		return domain.DegreeDayRecord{}, err
	}
	if p.weights != nil && means.Weighted == nil {
		p.metrics.WeightedFallbacks.Inc()
	}

	return domain.NewRecord(field.Model, field.RunID, field.Date, means), nil
}
