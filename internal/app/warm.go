package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/scoreboard/internal/adapters/mq/queue"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Invalidate drops both cached views of a contest. When warming is running,
// it also schedules a recompute of the contestant view; repeated
// invalidations of a contest whose warm job is still queued coalesce into it.
//
// A cache delete failure is returned, but the warm job is scheduled anyway.
func (s *Service) Invalidate(ctx context.Context, contestID string) error {
	ctx, span := s.tracer.Start(ctx, "Service.Invalidate", trace.WithAttributes(
		attribute.String("contest.id", contestID),
	))
	defer span.End()

	err := s.cache.Invalidate(ctx, contestID)
	s.scheduleWarm(ctx, contestID)
	if err != nil {
		return s.fail(span, fmt.Errorf("invalidate %s: %w: %w", contestID, model.ErrDataAccess, err))
	}
	return nil
}

func (s *Service) scheduleWarm(ctx context.Context, contestID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.warmQueue == nil {
		return
	}

	if s.deduper.SeenAndRecord(ctx, contestID) {
		metrics.RecordWarmCoalesced()
		s.logger.Debug(ctx, "warm already pending", logger.String("contest", contestID))
		return
	}

	if !s.warmQueue.Enqueue(ctx, queue.Job{ContestID: contestID, EnqueuedAt: time.Now()}) {
		s.deduper.Unrecord(ctx, contestID)
		s.logger.Warn(ctx, "warm job dropped", logger.String("contest", contestID))
	}
}

// Warm recomputes and caches the contestant view. It releases the contest's
// pending mark first, so an invalidation arriving during the recompute
// schedules another warm.
func (s *Service) Warm(ctx context.Context, contestID string) error {
	s.deduper.Unrecord(ctx, contestID)
	_, err := s.Standings(ctx, StandingsRequest{ContestID: contestID, View: model.ContestantView})
	return err
}
