package scoring

import (
	"errors"
	"fmt"

	"github.com/okian/scoreboard/internal/domain/model"
)

// ErrDetailUnavailable is returned when run details are requested but no
// detail fetcher is configured.
var ErrDetailUnavailable = errors.New("run details unavailable")

// AggregationError reports which participant/problem pair failed. It always
// unwraps to model.ErrDataAccess.
type AggregationError struct {
	ContestID     string
	ProblemID     string
	ParticipantID string
	Err           error
}

func newAggregationError(q *Query, err error) *AggregationError {
	if !errors.Is(err, model.ErrDataAccess) {
		err = fmt.Errorf("%w: %w", model.ErrDataAccess, err)
	}
	return &AggregationError{
		ContestID:     q.ContestID,
		ProblemID:     q.ProblemID,
		ParticipantID: q.ParticipantID,
		Err:           err,
	}
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregate contest=%s problem=%s participant=%s: %v",
		e.ContestID, e.ProblemID, e.ParticipantID, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }
