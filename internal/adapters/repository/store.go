// Package repository provides the run stores the scoreboard reads from.
package repository

import (
	"context"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Store is the read side of contest, participant, problem and run data.
//
// Lookup failures other than a missing contest are reported wrapping
// model.ErrDataAccess.
type Store interface {
	// Contest returns the contest or an error wrapping model.ErrNotFound.
	Contest(ctx context.Context, contestID string) (*model.Contest, error)

	// ListParticipants returns the contest roster plus anyone with a run
	// visible under showAll, ordered by username. A non-empty filter keeps
	// only the listed usernames.
	ListParticipants(ctx context.Context, contestID string, showAll bool, filter []string) ([]model.Participant, error)

	// ListProblems returns the scored problems in contest order.
	ListProblems(ctx context.Context, contestID string) ([]model.Problem, error)

	// BestRun returns the highest scoring graded run submitted strictly
	// before limit (Unix seconds). Ties go to the earlier submission, then
	// the lower run id. Returns nil when the participant has no such run.
	BestRun(ctx context.Context, contestID, problemID, participantID string, limit int64, showAll bool) (*model.Run, error)

	// CountWrongRuns counts graded non-passing runs on the same problem that
	// precede the run with id excludingRunID.
	CountWrongRuns(ctx context.Context, contestID, problemID, participantID string, excludingRunID int64, showAll bool) (int, error)

	// HasPendingRuns reports whether any visible run is still being graded.
	HasPendingRuns(ctx context.Context, contestID string, showAll bool) (bool, error)

	// ListRuns returns graded visible runs in replay order.
	ListRuns(ctx context.Context, contestID string, order model.RunOrder, showAll bool) ([]model.Run, error)

	// Close releases resources held by the store.
	Close() error
}
