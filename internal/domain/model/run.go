package model

import "time"

// RunStatus is the grading lifecycle state of a run.
type RunStatus string

// Run statuses. Only StatusReady runs carry a final score.
const (
	StatusNew       RunStatus = "new"
	StatusWaiting   RunStatus = "waiting"
	StatusCompiling RunStatus = "compiling"
	StatusRunning   RunStatus = "running"
	StatusReady     RunStatus = "ready"
)

// Pending reports whether the run is still queued or being graded.
func (s RunStatus) Pending() bool {
	return s != StatusReady
}

// Verdict is the grader outcome of a run.
type Verdict string

// Grader verdicts.
const (
	VerdictAccepted            Verdict = "AC"
	VerdictPartiallyAccepted   Verdict = "PA"
	VerdictWrongAnswer         Verdict = "WA"
	VerdictTimeLimitExceeded   Verdict = "TLE"
	VerdictMemoryLimitExceeded Verdict = "MLE"
	VerdictOutputLimitExceeded Verdict = "OLE"
	VerdictRuntimeError        Verdict = "RTE"
	VerdictRestrictedFunction  Verdict = "RFE"
	VerdictCompileError        Verdict = "CE"
	VerdictJudgeError          Verdict = "JE"
)

// Passing reports whether the verdict counts as a solved attempt.
func (v Verdict) Passing() bool {
	return v == VerdictAccepted
}

// Run is a single graded (or pending) submission.
type Run struct {
	ID            int64     `yaml:"id" json:"id"`
	Token         string    `yaml:"token" json:"token"`
	ContestID     string    `yaml:"contest_id" json:"contest_id"`
	ProblemID     string    `yaml:"problem_id" json:"problem_id"`
	ParticipantID string    `yaml:"participant_id" json:"participant_id"`
	SubmittedAt   time.Time `yaml:"submitted_at" json:"submitted_at"`
	// SubmitDelay is in minutes, already measured from the contest's penalty start.
	SubmitDelay float64 `yaml:"submit_delay" json:"submit_delay"`
	// Score is the raw 0.0-1.0 fraction of passed cases.
	Score float64 `yaml:"score" json:"score"`
	// ContestScore is the points awarded within the contest.
	ContestScore float64   `yaml:"contest_score" json:"contest_score"`
	Status       RunStatus `yaml:"status" json:"status"`
	Verdict      Verdict   `yaml:"verdict" json:"verdict"`
	Test         bool      `yaml:"test" json:"test"`
}

// VisibleTo reports whether the run is counted for a view.
func (r *Run) VisibleTo(showAll bool) bool {
	return showAll || !r.Test
}

// Before reports whether the run was submitted strictly before the Unix
// timestamp limit.
func (r *Run) Before(limit int64) bool {
	return r.SubmittedAt.Unix() < limit
}

// RunOrder selects the replay order for ListRuns.
type RunOrder int

// Run orderings.
const (
	OrderBySubmissionTime RunOrder = iota
	OrderBySubmitDelay
)

// RunOrderFor returns the replay order a contest's penalty mode calls for.
func RunOrderFor(c *Contest) RunOrder {
	if c.PenaltyMode.UsesPenalty() {
		return OrderBySubmitDelay
	}
	return OrderBySubmissionTime
}
