// Package scoring computes what part of a contest is visible and the best
// score of one participant on one problem.
package scoring

import (
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
)

const fullVisibility = 100

// VisibilityLimit returns the Unix timestamp before which runs count.
//
// Admin views, and finished contests that reveal their scoreboard, see the
// whole window. Everyone else sees the first ScoreboardPercent of it.
func VisibilityLimit(c *model.Contest, showAll bool, now time.Time) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}

	percent := int64(c.ScoreboardPercent)
	if showAll || (c.HasFinished(now) && c.ShowScoreboardAfter) {
		percent = fullVisibility
	}

	start := c.StartTime.Unix()
	window := c.FinishTime.Unix() - start
	// window and percent are both non-negative, so integer division floors.
	return start + window*percent/fullVisibility, nil
}
