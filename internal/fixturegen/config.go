package fixturegen

import (
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Config holds configuration for fixture generation and probing.
type Config struct {
	Contests           int               // Number of contests to generate
	Participants       int               // Roster size shared by every contest
	Problems           int               // Problems per contest
	RunsPerParticipant int               // Runs each participant submits per contest
	Workers            int               // Concurrent contest generators
	Duration           time.Duration     // Contest window length
	Start              time.Time         // Start of the first contest; zero means Duration ago
	ScoreboardPercent  int               // Visible share of the window
	PenaltyMode        model.PenaltyMode // Penalty mode of every contest
	PenaltyPerWrong    int               // Penalty minutes per wrong run
	TestRunPercent     int               // Share of runs flagged as test runs
	OutputFile         string            // Output file for the YAML fixture
	InputFile          string            // Existing fixture to probe instead of generating
	BaseURL            string            // Server to probe; empty skips probing
	Timeout            time.Duration     // HTTP request timeout
	Verbose            bool              // Enable verbose logging
}

// Stats holds generation and probe statistics.
type Stats struct {
	ContestsGenerated int
	UsersGenerated    int
	RunsGenerated     int
	ContestsProbed    int
	ContestsMatching  int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
