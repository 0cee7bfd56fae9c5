package translation

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	dErrors "idbridge/pkg/domain-errors"
)

// Batch limits. Items beyond maxBatchSize are rejected up front so a single
// request cannot monopolize the worker pool.
const (
	maxBatchSize     = 100
	batchConcurrency = 8
)

// BatchRequest translates many ids in one direction.
type BatchRequest struct {
	Direction Direction
	IDs       []string
}

// BatchItemError reports one failed item by its submitted id.
type BatchItemError struct {
	ID      string `json:"id"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// BatchResult partitions outcomes while preserving submission order within
// each partition. Items fail independently: one malformed id never affects
// its neighbours.
type BatchResult struct {
	Direction  Direction        `json:"direction"`
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Results    []Result         `json:"results"`
	Errors     []BatchItemError `json:"errors"`
}

// TranslateBatch runs each item through the single-translation path with
// bounded concurrency. Worker errors are captured per item, never
// propagated, so the group always finishes the whole batch.
func (s *Service) TranslateBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "idbridge.translate.batch")
	defer span.End()

	if _, err := ParseDirection(string(req.Direction)); err != nil {
		return nil, err
	}
	if len(req.IDs) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "batch requires at least one id")
	}
	if len(req.IDs) > maxBatchSize {
		return nil, dErrors.Newf(dErrors.CodeBadRequest,
			"batch size %d exceeds the limit of %d", len(req.IDs), maxBatchSize)
	}
	span.SetAttributes(
		attribute.String("direction", string(req.Direction)),
		attribute.Int("batch.size", len(req.IDs)),
	)

	type outcome struct {
		result *Result
		err    error
	}
	outcomes := make([]outcome, len(req.IDs))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(batchConcurrency)
	for i, id := range req.IDs {
		group.Go(func() error {
			result, err := s.translateOne(ctx, req.Direction, id)
			outcomes[i] = outcome{result: result, err: err}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "batch translation")
	}

	batch := &BatchResult{
		Direction: req.Direction,
		Total:     len(req.IDs),
		Results:   make([]Result, 0, len(req.IDs)),
		Errors:    make([]BatchItemError, 0),
	}
	for i, out := range outcomes {
		if out.err != nil {
			batch.Failed++
			s.countBatchItem("failed")
			batch.Errors = append(batch.Errors, BatchItemError{
				ID:      req.IDs[i],
				Error:   string(dErrors.CodeOf(out.err)),
				Message: dErrors.MessageOf(out.err),
			})
			continue
		}
		batch.Successful++
		s.countBatchItem("succeeded")
		batch.Results = append(batch.Results, *out.result)
	}
	return batch, nil
}

func (s *Service) translateOne(ctx context.Context, direction Direction, id string) (*Result, error) {
	if direction == DirectionTechnicalToLegal {
		return s.TechnicalToLegal(ctx, TechnicalToLegalRequest{TechnicalID: id})
	}
	return s.LegalToTechnical(ctx, LegalToTechnicalRequest{LegalID: id})
}
