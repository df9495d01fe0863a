package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/scoreboard/internal/adapters/cache"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/ranking"
	"github.com/okian/scoreboard/internal/domain/scoring"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// StandingsRequest selects a scoreboard rendering.
type StandingsRequest struct {
	ContestID string
	View      model.View
	// SortByName orders rows by username. Places still follow the score order.
	SortByName bool
	// UserFilter keeps only the listed usernames when non-empty.
	UserFilter        []string
	IncludeRunDetails bool
}

// cacheable reports whether the request renders the plain per-view snapshot.
func (r *StandingsRequest) cacheable() bool {
	return !r.SortByName && len(r.UserFilter) == 0 && !r.IncludeRunDetails
}

// computed is a snapshot plus what decides whether and how long to cache it.
type computed struct {
	snap     *types.Snapshot
	contest  *model.Contest
	pending  bool
	computed time.Time
}

// Standings returns the ranked scoreboard of a contest.
//
// Plain requests are served from the per-view cache and refill it on a miss.
// Concurrent misses for the same contest and view share one computation.
// Filtered, name-sorted and detail-enriched requests always recompute and are
// never cached.
func (s *Service) Standings(ctx context.Context, req StandingsRequest) (*types.Snapshot, error) {
	view := req.View.String()
	ctx, span := s.tracer.Start(ctx, "Service.Standings", trace.WithAttributes(
		attribute.String("contest.id", req.ContestID),
		attribute.String("scoreboard.view", view),
		attribute.Bool("scoreboard.cacheable", req.cacheable()),
	))
	defer span.End()

	if req.IncludeRunDetails && s.details == nil {
		return nil, s.fail(span, fmt.Errorf("standings %s: %w", req.ContestID, scoring.ErrDetailUnavailable))
	}

	if !req.cacheable() {
		metrics.RecordStandingsRequest(view, metrics.CacheBypass)
		c, err := s.compute(ctx, &req)
		if err != nil {
			return nil, s.fail(span, err)
		}
		return c.snap, nil
	}

	if snap, ok := s.cache.Get(ctx, req.ContestID, req.View); ok {
		metrics.RecordStandingsRequest(view, metrics.CacheHit)
		span.SetAttributes(attribute.Bool("scoreboard.cache_hit", true))
		return snap, nil
	}
	metrics.RecordStandingsRequest(view, metrics.CacheMiss)

	// The shared computation is detached from the caller that started it: a
	// caller that gives up only stops waiting, and the result still reaches
	// the others and the cache.
	ch := s.flight.DoChan(cache.Key(req.ContestID, req.View), func() (interface{}, error) {
		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.computeTimeout)
		defer cancel()
		return s.computeAndStore(computeCtx, &req)
	})
	select {
	case <-ctx.Done():
		return nil, s.fail(span, fmt.Errorf("standings %s: %w", req.ContestID, ctx.Err()))
	case res := <-ch:
		span.SetAttributes(attribute.Bool("scoreboard.shared", res.Shared))
		if res.Err != nil {
			return nil, s.fail(span, res.Err)
		}
		return res.Val.(*types.Snapshot), nil
	}
}

// computeAndStore computes a plain snapshot and caches it unless runs are
// still being graded or the contest was invalidated meanwhile.
func (s *Service) computeAndStore(ctx context.Context, req *StandingsRequest) (*types.Snapshot, error) {
	gen := s.cache.Generation(req.ContestID)

	c, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}

	if c.pending {
		s.logger.Debug(ctx, "pending runs, snapshot not cached", logger.String("contest", req.ContestID))
		return c.snap, nil
	}

	s.cache.SetIfCurrent(ctx, gen, req.ContestID, req.View, c.snap, s.ttl(c.contest, req.View, c.computed))
	return c.snap, nil
}

// ttl is zero once the contest has finished: its scoreboard only changes
// through an invalidation.
func (s *Service) ttl(c *model.Contest, view model.View, now time.Time) time.Duration {
	if c.HasFinished(now) {
		return 0
	}
	if view == model.AdminView {
		return s.adminTTL
	}
	return s.contestantTTL
}

func (s *Service) compute(ctx context.Context, req *StandingsRequest) (*computed, error) {
	start := time.Now()
	showAll := req.View.ShowAll()

	contest, err := s.store.Contest(ctx, req.ContestID)
	if err != nil {
		return nil, fmt.Errorf("standings %s: %w", req.ContestID, err)
	}

	now := s.now()
	limit, err := scoring.VisibilityLimit(contest, showAll, now)
	if err != nil {
		return nil, fmt.Errorf("standings %s: %w", req.ContestID, err)
	}

	pending, err := s.store.HasPendingRuns(ctx, req.ContestID, showAll)
	if err != nil {
		return nil, fmt.Errorf("standings %s: pending runs: %w", req.ContestID, err)
	}
	participants, err := s.store.ListParticipants(ctx, req.ContestID, showAll, req.UserFilter)
	if err != nil {
		return nil, fmt.Errorf("standings %s: participants: %w", req.ContestID, err)
	}
	problems, err := s.store.ListProblems(ctx, req.ContestID)
	if err != nil {
		return nil, fmt.Errorf("standings %s: problems: %w", req.ContestID, err)
	}

	rows := make([]types.StandingsRow, len(participants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range participants {
		p := participants[i]
		g.Go(func() error {
			row, err := s.row(gctx, contest, problems, p, limit, req)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.RecordAggregationError()
		s.logger.Error(ctx, "standings aggregation failed",
			logger.String("contest", req.ContestID),
			logger.String("view", req.View.String()),
			logger.Error(err),
		)
		return nil, err
	}

	ranking.Rank(rows, req.SortByName)

	metrics.RecordStandingsComputation(req.View.String(), metrics.Since(start), len(rows))

	return &computed{
		snap: &types.Snapshot{
			ContestID:    contest.ID,
			ProblemCount: len(problems),
			Ranking:      rows,
		},
		contest:  contest,
		pending:  pending,
		computed: now,
	}, nil
}

// row aggregates one participant across every problem.
func (s *Service) row(ctx context.Context, c *model.Contest, problems []model.Problem, p model.Participant, limit int64, req *StandingsRequest) (types.StandingsRow, error) {
	entries := make(map[string]types.ScoreEntry, len(problems))
	var points float64
	var penalty int64

	for _, prob := range problems {
		entry, err := s.aggregator.BestScore(ctx, scoring.Query{
			ContestID:       c.ID,
			ProblemID:       prob.ID,
			ParticipantID:   p.ID,
			Limit:           limit,
			View:            req.View,
			PenaltyPerWrong: c.PenaltyPerWrong,
			PenaltyMode:     c.PenaltyMode,
			IncludeDetails:  req.IncludeRunDetails,
		})
		if err != nil {
			return types.StandingsRow{}, err
		}
		entries[prob.Alias] = entry
		points += entry.Points
		penalty += entry.Penalty
	}

	return types.StandingsRow{
		Username: p.Username,
		Name:     p.DisplayName(),
		Problems: entries,
		Total: types.Total{
			Points:  types.RoundTotal(points),
			Penalty: penalty,
		},
	}, nil
}

// fail records err on the span and returns it.
func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
