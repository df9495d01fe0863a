// Package replay folds a contest's run history into scoreboard events.
package replay

import (
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/scoring"
	"github.com/okian/scoreboard/internal/domain/types"
)

// Input is everything a replay needs. Runs must already be in replay order
// (see model.RunOrderFor).
type Input struct {
	Contest      *model.Contest
	Participants []model.Participant
	Problems     []model.Problem
	Runs         []model.Run
	Limit        int64
	ShowAll      bool
}

type cell struct {
	points  float64
	penalty int64
	wrong   int
}

type standing struct {
	participant model.Participant
	cells       map[string]*cell
	points      float64
	penalty     int64
}

// Replay emits one event for every run that strictly improves a
// participant's best points on a problem. Pending runs, runs hidden from the
// view, runs on unknown problems and runs at or after the limit are skipped.
//
// Penalty follows the snapshot rules: each event carries the penalty the
// improving run would earn as the best run, counting the non-passing runs
// replayed before it.
func Replay(in Input) []types.Event {
	problems := make(map[string]model.Problem, len(in.Problems))
	for _, p := range in.Problems {
		problems[p.ID] = p
	}
	standings := make(map[string]*standing, len(in.Participants))
	for _, p := range in.Participants {
		standings[p.ID] = &standing{participant: p, cells: make(map[string]*cell)}
	}

	start := in.Contest.StartTime.Unix()
	usePenalty := in.Contest.PenaltyMode.UsesPenalty()

	var events []types.Event
	for i := range in.Runs {
		r := &in.Runs[i]
		if r.Status.Pending() || !r.VisibleTo(in.ShowAll) || !r.Before(in.Limit) {
			continue
		}
		prob, ok := problems[r.ProblemID]
		if !ok {
			continue
		}

		st, ok := standings[r.ParticipantID]
		if !ok {
			st = &standing{
				participant: model.Participant{ID: r.ParticipantID, Username: r.ParticipantID},
				cells:       make(map[string]*cell),
			}
			standings[r.ParticipantID] = st
		}
		c, ok := st.cells[prob.ID]
		if !ok {
			c = &cell{}
			st.cells[prob.ID] = c
		}

		priorWrong := c.wrong
		if !r.Verdict.Passing() {
			c.wrong++
		}

		points := types.RoundPoints(r.ContestScore)
		if points <= c.points {
			continue
		}

		var penalty int64
		if points > 0 {
			penalty = int64(priorWrong*in.Contest.PenaltyPerWrong) + scoring.RunPenalty(r, in.Contest.PenaltyMode)
		}

		st.points += points - c.points
		st.penalty += penalty - c.penalty
		c.points, c.penalty = points, penalty

		delta := r.SubmitDelay
		if !usePenalty {
			delta = float64(r.SubmittedAt.Unix()-start) / 60
		}

		events = append(events, types.Event{
			Username: st.participant.Username,
			Name:     st.participant.DisplayName(),
			Delta:    delta,
			Problem: types.ProblemDelta{
				Alias:   prob.Alias,
				Points:  points,
				Penalty: penalty,
			},
			Total: types.Total{
				Points:  types.RoundTotal(st.points),
				Penalty: st.penalty,
			},
		})
	}
	return events
}
