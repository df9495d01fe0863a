package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/fixturegen"
	"github.com/okian/scoreboard/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		contests     = flag.Int("contests", fixturegen.DefaultContests, "Number of contests")
		participants = flag.Int("participants", fixturegen.DefaultParticipants, "Roster size shared by every contest")
		problems     = flag.Int("problems", fixturegen.DefaultProblems, "Problems per contest")
		runs         = flag.Int("runs", fixturegen.DefaultRunsPerParticipant, "Runs per participant per contest")
		duration     = flag.Duration("duration", fixturegen.DefaultDuration, "Contest window length")
		percent      = flag.Int("percent", fixturegen.DefaultScoreboardPercent, "Scoreboard visibility percentage")
		penaltyMode  = flag.String("penalty-mode", string(model.PenaltyBySubmissionTime), "none, by-submission-time or by-submit-delay")
		penalty      = flag.Int("penalty", fixturegen.DefaultPenaltyPerWrong, "Penalty minutes per wrong run")
		testRuns     = flag.Int("test-runs", fixturegen.DefaultTestRunPercent, "Percentage of runs flagged as test runs")
		workers      = flag.Int("workers", runtime.NumCPU(), "Number of concurrent contest generators")
		outputFile   = flag.String("output", "", "Output file (default: fixture_TIMESTAMP.yaml)")
		inputFile    = flag.String("fixture", "", "Probe an existing fixture instead of generating one")
		baseURL      = flag.String("url", "", "Server to probe after generation")
		timeout      = flag.Duration("timeout", fixturegen.DefaultTimeout, "HTTP request timeout")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		fixturegen.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &fixturegen.Config{
		Contests:           *contests,
		Participants:       *participants,
		Problems:           *problems,
		RunsPerParticipant: *runs,
		Workers:            *workers,
		Duration:           *duration,
		ScoreboardPercent:  *percent,
		PenaltyMode:        model.PenaltyMode(*penaltyMode),
		PenaltyPerWrong:    *penalty,
		TestRunPercent:     *testRuns,
		OutputFile:         *outputFile,
		InputFile:          *inputFile,
		BaseURL:            *baseURL,
		Timeout:            *timeout,
		Verbose:            *verbose,
	}

	if err := fixturegen.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Fixture generation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
