// Package types contains the scoreboard read shapes shared by the engine,
// the cache, and the HTTP API.
package types

import "math"

// CaseMeta is the grader metadata of a single test case.
type CaseMeta struct {
	Status string  `json:"status"`
	Time   float64 `json:"time"`
	Memory int64   `json:"memory"`
}

// CaseResult is one graded test case.
type CaseResult struct {
	Name  string   `json:"name"`
	Score float64  `json:"score"`
	Meta  CaseMeta `json:"meta"`
	// OutDiff is non-nil when the produced output differed from the expected one.
	OutDiff *string `json:"out_diff,omitempty"`
}

// GroupResult groups cases the way the grader reports them.
type GroupResult struct {
	Group string       `json:"group"`
	Score float64      `json:"score"`
	Cases []CaseResult `json:"cases"`
}

// RunDetail is the per-case breakdown of a graded run.
type RunDetail struct {
	Verdict string        `json:"verdict"`
	Score   float64       `json:"score"`
	Groups  []GroupResult `json:"groups"`
	Source  string        `json:"source,omitempty"`
}

// ScoreEntry is a participant's result on one problem.
type ScoreEntry struct {
	Points         float64    `json:"points"`
	Penalty        int64      `json:"penalty"`
	WrongRunsCount int        `json:"wrong_runs_count"`
	RunDetails     *RunDetail `json:"run_details,omitempty"`
}

// Total is a participant's aggregate across all problems.
type Total struct {
	Points  float64 `json:"points"`
	Penalty int64   `json:"penalty"`
}

// StandingsRow is one ranked participant.
type StandingsRow struct {
	Username string                `json:"username"`
	Name     string                `json:"name"`
	Problems map[string]ScoreEntry `json:"problems"`
	Total    Total                 `json:"total"`
	Place    int                   `json:"place"`
}

// Snapshot is a fully ranked scoreboard. It is the unit stored in the cache.
type Snapshot struct {
	ContestID    string         `json:"contest_id"`
	ProblemCount int            `json:"problem_count"`
	Ranking      []StandingsRow `json:"ranking"`
}

// Row returns the row for username, if present.
func (s *Snapshot) Row(username string) (StandingsRow, bool) {
	for _, r := range s.Ranking {
		if r.Username == username {
			return r, true
		}
	}
	return StandingsRow{}, false
}

// ProblemDelta is the per-problem part of a scoreboard event.
type ProblemDelta struct {
	Alias   string  `json:"alias"`
	Points  float64 `json:"points"`
	Penalty int64   `json:"penalty"`
}

// Event is one strictly improving run in scoreboard history.
type Event struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	// Delta is minutes: submit delay when the contest uses penalty time,
	// otherwise minutes since contest start.
	Delta   float64      `json:"delta"`
	Problem ProblemDelta `json:"problem"`
	Total   Total        `json:"total"`
}

// RoundPoints rounds per-problem points to two decimals.
func RoundPoints(p float64) float64 {
	return math.Round(p*100) / 100
}

// RoundTotal rounds summed per-problem points to a whole number.
func RoundTotal(p float64) float64 {
	return math.Round(p)
}
