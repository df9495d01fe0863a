package repository

import (
	"errors"
	"fmt"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrContestNotFound = fmt.Errorf("contest %w", model.ErrNotFound)
	ErrInvalidFixture  = errors.New("invalid fixture")
	ErrStoreClosed     = fmt.Errorf("store closed: %w", model.ErrDataAccess)
)

// dataAccess wraps a driver error so callers can match model.ErrDataAccess.
func dataAccess(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrDataAccess, err)
}
