package scoring

import (
	"context"
	"math"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
)

// Case statuses the grader reports per test case.
const (
	caseStatusOK          = "OK"
	caseStatusWrongAnswer = "WA"
)

// RunFinder is the slice of the run store the aggregator reads.
type RunFinder interface {
	// BestRun returns the highest scoring graded run submitted strictly before
	// limit, or nil when there is none.
	BestRun(ctx context.Context, contestID, problemID, participantID string, limit int64, showAll bool) (*model.Run, error)
	// CountWrongRuns counts non-passing graded runs submitted before the run
	// identified by excludingRunID.
	CountWrongRuns(ctx context.Context, contestID, problemID, participantID string, excludingRunID int64, showAll bool) (int, error)
}

// DetailFetcher looks up the per-case breakdown of a graded run.
type DetailFetcher interface {
	RunDetail(ctx context.Context, token string) (*types.RunDetail, error)
}

// Query identifies one participant/problem cell of the scoreboard.
type Query struct {
	ContestID     string
	ProblemID     string
	ParticipantID string
	// Limit is the visibility limit as a Unix timestamp.
	Limit           int64
	View            model.View
	PenaltyPerWrong int
	PenaltyMode     model.PenaltyMode
	IncludeDetails  bool
}

// Aggregator computes ScoreEntry values from the run store.
type Aggregator struct {
	runs    RunFinder
	details DetailFetcher
	logger  logger.Logger
}

// NewAggregator creates an aggregator over runs.
func NewAggregator(runs RunFinder, opts ...Option) *Aggregator {
	a := &Aggregator{
		runs:   runs,
		logger: logger.Get().Named("aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BestScore returns the participant's entry for one problem. Any store
// failure is returned as an *AggregationError.
func (a *Aggregator) BestScore(ctx context.Context, q Query) (types.ScoreEntry, error) {
	showAll := q.View.ShowAll()

	best, err := a.runs.BestRun(ctx, q.ContestID, q.ProblemID, q.ParticipantID, q.Limit, showAll)
	if err != nil {
		return types.ScoreEntry{}, newAggregationError(&q, err)
	}
	if best == nil {
		return types.ScoreEntry{}, nil
	}

	entry := types.ScoreEntry{Points: types.RoundPoints(best.ContestScore)}

	if entry.Points > 0 {
		if q.PenaltyPerWrong > 0 {
			wrong, err := a.runs.CountWrongRuns(ctx, q.ContestID, q.ProblemID, q.ParticipantID, best.ID, showAll)
			if err != nil {
				return types.ScoreEntry{}, newAggregationError(&q, err)
			}
			entry.WrongRunsCount = wrong
			entry.Penalty = int64(wrong * q.PenaltyPerWrong)
		}
		entry.Penalty += RunPenalty(best, q.PenaltyMode)
	}

	if q.IncludeDetails && best.Token != "" {
		if a.details == nil {
			return types.ScoreEntry{}, newAggregationError(&q, ErrDetailUnavailable)
		}
		detail, err := a.details.RunDetail(ctx, best.Token)
		if err != nil {
			a.logger.Warn(ctx, "run detail lookup failed",
				logger.String("contest", q.ContestID),
				logger.String("token", best.Token),
				logger.Error(err),
			)
			return types.ScoreEntry{}, newAggregationError(&q, err)
		}
		entry.RunDetails = CorrectDetail(detail)
	}

	return entry, nil
}

// RunPenalty is the penalty time a scoring run contributes on its own:
// its rounded submit delay, or nothing when the contest has no penalty time.
func RunPenalty(r *model.Run, mode model.PenaltyMode) int64 {
	if !mode.UsesPenalty() {
		return 0
	}
	return int64(math.Round(r.SubmitDelay))
}

// CorrectDetail returns a copy of d where cases the grader marked OK but
// whose output differed are reported as WA, and the source is removed.
func CorrectDetail(d *types.RunDetail) *types.RunDetail {
	if d == nil {
		return nil
	}
	out := &types.RunDetail{
		Verdict: d.Verdict,
		Score:   d.Score,
		Groups:  make([]types.GroupResult, len(d.Groups)),
	}
	for i, g := range d.Groups {
		cases := make([]types.CaseResult, len(g.Cases))
		for j, c := range g.Cases {
			if c.Meta.Status == caseStatusOK && c.OutDiff != nil {
				c.Meta.Status = caseStatusWrongAnswer
			}
			cases[j] = c
		}
		out.Groups[i] = types.GroupResult{Group: g.Group, Score: g.Score, Cases: cases}
	}
	return out
}
