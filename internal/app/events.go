package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/replay"
	"github.com/okian/scoreboard/internal/domain/scoring"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Events replays the contest's visible runs into score events. The result is
// never cached.
func (s *Service) Events(ctx context.Context, contestID string, view model.View) ([]types.Event, error) {
	ctx, span := s.tracer.Start(ctx, "Service.Events", trace.WithAttributes(
		attribute.String("contest.id", contestID),
		attribute.String("scoreboard.view", view.String()),
	))
	defer span.End()

	start := time.Now()
	showAll := view.ShowAll()

	contest, err := s.store.Contest(ctx, contestID)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("events %s: %w", contestID, err))
	}
	limit, err := scoring.VisibilityLimit(contest, showAll, s.now())
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("events %s: %w", contestID, err))
	}

	participants, err := s.store.ListParticipants(ctx, contestID, showAll, nil)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("events %s: participants: %w", contestID, err))
	}
	problems, err := s.store.ListProblems(ctx, contestID)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("events %s: problems: %w", contestID, err))
	}
	runs, err := s.store.ListRuns(ctx, contestID, model.RunOrderFor(contest), showAll)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("events %s: runs: %w", contestID, err))
	}

	events := replay.Replay(replay.Input{
		Contest:      contest,
		Participants: participants,
		Problems:     problems,
		Runs:         runs,
		Limit:        limit,
		ShowAll:      showAll,
	})
	if events == nil {
		events = []types.Event{}
	}

	metrics.RecordEventReplay(len(events), metrics.Since(start))
	span.SetAttributes(attribute.Int("scoreboard.events", len(events)))
	return events, nil
}
