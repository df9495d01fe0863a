package fixturegen

import "os"

// ShowHelp prints usage information for the fixture generator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Scoreboard Fixture Generator
============================

Generates a YAML fixture of contests, problems and graded runs that the
scoreboard server loads through fixture_path. With -url the generated
standings are also checked against a server started with that fixture.

Usage:
  go run ./cmd/fixturegen [options]

Options:
  -contests int
        Number of contests (default 3)
  -participants int
        Roster size shared by every contest (default 50)
  -problems int
        Problems per contest (default 6)
  -runs int
        Runs per participant per contest (default 12)
  -duration duration
        Contest window length (default 5h)
  -percent int
        Scoreboard visibility percentage (default 80)
  -penalty-mode string
        none, by-submission-time or by-submit-delay (default "by-submission-time")
  -penalty int
        Penalty minutes per wrong run (default 20)
  -test-runs int
        Percentage of runs flagged as test runs (default 5)
  -workers int
        Number of concurrent contest generators (default CPU cores)
  -output string
        Output file (default: fixture_TIMESTAMP.yaml)
  -fixture string
        Probe an existing fixture instead of generating one
  -url string
        Server to probe after generation (default: no probe)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Generate a fixture and start the server with it
  go run ./cmd/fixturegen -output fixtures/load.yaml
  SCOREBOARD_FIXTURE_PATH=fixtures/load.yaml go run ./cmd

  # Verify a running server against the same fixture
  go run ./cmd/fixturegen -fixture fixtures/load.yaml -url http://localhost:9080
`)
}
