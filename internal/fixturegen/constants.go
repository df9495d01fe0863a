package fixturegen

import "time"

// Defaults applied to zero config fields.
const (
	DefaultContests           = 3
	DefaultParticipants       = 50
	DefaultProblems           = 6
	DefaultRunsPerParticipant = 12
	DefaultDuration           = 5 * time.Hour
	DefaultScoreboardPercent  = 80
	DefaultPenaltyPerWrong    = 20
	DefaultTestRunPercent     = 5
	DefaultTimeout            = 30 * time.Second
)

// Generation constants.
const (
	problemPointsStep = 100
	randomFloatScale  = 1000000
	percentScale      = 100
	directoryPerm     = 0o750
	filePerm          = 0o600
)
