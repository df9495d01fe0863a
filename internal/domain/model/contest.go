// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// PenaltyMode selects which clock a contest uses for penalty time.
type PenaltyMode string

// Supported penalty modes.
const (
	PenaltyNone             PenaltyMode = "none"
	PenaltyBySubmissionTime PenaltyMode = "by-submission-time"
	PenaltyBySubmitDelay    PenaltyMode = "by-submit-delay"
)

// UsesPenalty reports whether submit delay contributes penalty time.
func (m PenaltyMode) UsesPenalty() bool {
	return m != "" && m != PenaltyNone
}

// Contest is the scoring window and penalty policy of a contest.
type Contest struct {
	ID        string    `yaml:"id" json:"id"`
	Title     string    `yaml:"title" json:"title"`
	StartTime time.Time `yaml:"start_time" json:"start_time"`
	// FinishTime must not precede StartTime.
	FinishTime time.Time `yaml:"finish_time" json:"finish_time"`
	// ScoreboardPercent is the share of the window (0-100) whose runs are
	// visible to contestants while the contest is running.
	ScoreboardPercent int `yaml:"scoreboard_percent" json:"scoreboard_percent"`
	// PenaltyPerWrong is added once per non-passing attempt before the best run.
	PenaltyPerWrong int         `yaml:"penalty_per_wrong" json:"penalty_per_wrong"`
	PenaltyMode     PenaltyMode `yaml:"penalty_mode" json:"penalty_mode"`
	// ShowScoreboardAfter reveals the full scoreboard once the contest is over.
	ShowScoreboardAfter bool `yaml:"show_scoreboard_after" json:"show_scoreboard_after"`
}

// HasFinished reports whether now is at or past the finish time.
func (c *Contest) HasFinished(now time.Time) bool {
	return !now.Before(c.FinishTime)
}

// Validate checks the time window and visibility percentage.
func (c *Contest) Validate() error {
	if c.FinishTime.Before(c.StartTime) {
		return fmt.Errorf("contest %s finishes before it starts: %w", c.ID, ErrInvalidContest)
	}
	if c.ScoreboardPercent < 0 || c.ScoreboardPercent > 100 {
		return fmt.Errorf("contest %s scoreboard percent %d out of range: %w", c.ID, c.ScoreboardPercent, ErrInvalidContest)
	}
	return nil
}

// Participant is a ranked contestant.
type Participant struct {
	ID       string `yaml:"id" json:"id"`
	Username string `yaml:"username" json:"username"`
	Name     string `yaml:"name" json:"name"`
}

// DisplayName returns Name, or Username when no name is set.
func (p Participant) DisplayName() string {
	if p.Name == "" {
		return p.Username
	}
	return p.Name
}

// Problem is a contest problem keyed by its alias on the scoreboard.
type Problem struct {
	ID     string  `yaml:"id" json:"id"`
	Alias  string  `yaml:"alias" json:"alias"`
	Points float64 `yaml:"points" json:"points"`
}
