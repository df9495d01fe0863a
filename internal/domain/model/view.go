package model

import "fmt"

// View selects both the scoreboard cache slot and which runs are counted.
type View int

// Scoreboard views.
const (
	ContestantView View = iota
	AdminView
)

// ShowAll reports whether test runs and frozen runs are visible.
func (v View) ShowAll() bool {
	return v == AdminView
}

func (v View) String() string {
	switch v {
	case AdminView:
		return "admin"
	default:
		return "contestant"
	}
}

// ParseView parses "contestant" or "admin". The empty string is contestant.
func ParseView(s string) (View, error) {
	switch s {
	case "", "contestant":
		return ContestantView, nil
	case "admin":
		return AdminView, nil
	default:
		return ContestantView, fmt.Errorf("unknown scoreboard mode %q", s)
	}
}
