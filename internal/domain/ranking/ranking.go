// Package ranking orders scoreboard rows and assigns places with draws.
package ranking

import (
	"sort"
	"strings"

	"github.com/okian/scoreboard/internal/domain/types"
)

// SortByScore orders rows by total points descending, then total penalty
// ascending. Exact ties keep a stable username order.
func SortByScore(rows []types.StandingsRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Total, rows[j].Total
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Penalty != b.Penalty {
			return a.Penalty < b.Penalty
		}
		return rows[i].Username < rows[j].Username
	})
}

// SortByName orders rows by username using ordinal string comparison.
func SortByName(rows []types.StandingsRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return strings.Compare(rows[i].Username, rows[j].Username) < 0
	})
}

// AssignPlaces sets Place on rows already ordered by SortByScore. Rows with
// equal (points, penalty) share a place; the next distinct row is placed
// after all of them, so A=1, B=1, C=3.
func AssignPlaces(rows []types.StandingsRow) {
	place, draws := 0, 0
	for i := range rows {
		switch {
		case i == 0:
			place, draws = 1, 1
		case rows[i].Total != rows[i-1].Total:
			place += draws
			draws = 1
		default:
			draws++
		}
		rows[i].Place = place
	}
}

// Rank sorts rows by score and assigns places. When byName is set the rows
// are then reordered by username, keeping the places earned by score.
func Rank(rows []types.StandingsRow, byName bool) {
	SortByScore(rows)
	AssignPlaces(rows)
	if byName {
		SortByName(rows)
	}
}
