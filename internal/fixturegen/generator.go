package fixturegen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
)

// Constants for participant skill tiers.
const (
	tierCount       = 4
	tierElite       = 0
	tierStrong      = 1
	tierAverage     = 2
	eliteAbility    = 0.9
	strongAbility   = 0.7
	averageAbility  = 0.45
	beginnerAbility = 0.2
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatScale))
	return float64(n.Int64()) / float64(randomFloatScale)
}

// getRandomInt returns a random int in [0, n).
func getRandomInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// withDefaults returns a copy of cfg with zero fields filled in.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.Contests <= 0 {
		out.Contests = DefaultContests
	}
	if out.Participants <= 0 {
		out.Participants = DefaultParticipants
	}
	if out.Problems <= 0 {
		out.Problems = DefaultProblems
	}
	if out.RunsPerParticipant <= 0 {
		out.RunsPerParticipant = DefaultRunsPerParticipant
	}
	if out.Workers <= 0 {
		out.Workers = runtime.NumCPU()
	}
	if out.Duration <= 0 {
		out.Duration = DefaultDuration
	}
	if out.Start.IsZero() {
		out.Start = time.Now().UTC().Add(-out.Duration).Truncate(time.Minute)
	}
	if out.ScoreboardPercent <= 0 || out.ScoreboardPercent > percentScale {
		out.ScoreboardPercent = DefaultScoreboardPercent
	}
	if out.PenaltyMode == "" {
		out.PenaltyMode = model.PenaltyBySubmissionTime
	}
	if out.PenaltyPerWrong < 0 {
		out.PenaltyPerWrong = DefaultPenaltyPerWrong
	}
	if out.TestRunPercent < 0 || out.TestRunPercent > percentScale {
		out.TestRunPercent = DefaultTestRunPercent
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	return &out
}

// Generate builds a valid fixture of contests sharing one roster. Contests are
// generated concurrently; run ids are assigned afterwards so they are unique
// across the whole fixture.
func Generate(ctx context.Context, config *Config, stats *Stats) (*repository.Fixture, error) {
	cfg := config.withDefaults()
	switch cfg.PenaltyMode {
	case model.PenaltyNone, model.PenaltyBySubmissionTime, model.PenaltyBySubmitDelay:
	default:
		return nil, fmt.Errorf("unknown penalty mode %q", cfg.PenaltyMode)
	}
	logger.Get().Info(ctx, "generating fixture",
		logger.Int("contests", cfg.Contests),
		logger.Int("participants", cfg.Participants),
		logger.Int("problems", cfg.Problems))

	users := generateUsers(cfg.Participants)
	contests := make([]repository.ContestFixture, cfg.Contests)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range contests {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("context cancelled during contest generation: %w", err)
			}
			contests[i] = generateContest(i, cfg, users)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var runID int64
	for i := range contests {
		for j := range contests[i].Runs {
			runID++
			contests[i].Runs[j].ID = runID
		}
	}

	f := &repository.Fixture{Users: users, Contests: contests}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("generated fixture is invalid: %w", err)
	}

	if stats != nil {
		stats.ContestsGenerated = len(contests)
		stats.UsersGenerated = len(users)
		stats.RunsGenerated = int(runID)
	}
	logger.Get().Info(ctx, "generated fixture successfully", logger.Int64("runs", runID))
	return f, nil
}

func generateUsers(n int) []model.Participant {
	users := make([]model.Participant, n)
	for i := range users {
		users[i] = model.Participant{
			ID:       fmt.Sprintf("u%d", i+1),
			Username: fmt.Sprintf("user%04d", i+1),
			Name:     fmt.Sprintf("Participant %d", i+1),
		}
	}
	return users
}

// generateContest creates contest index with its problems and the runs of
// every user. Each user draws one ability per contest.
func generateContest(index int, cfg *Config, users []model.Participant) repository.ContestFixture {
	id := fmt.Sprintf("contest-%d", index+1)
	c := repository.ContestFixture{
		Contest: model.Contest{
			ID:                  id,
			Title:               fmt.Sprintf("Generated Contest %d", index+1),
			StartTime:           cfg.Start,
			FinishTime:          cfg.Start.Add(cfg.Duration),
			ScoreboardPercent:   cfg.ScoreboardPercent,
			PenaltyPerWrong:     cfg.PenaltyPerWrong,
			PenaltyMode:         cfg.PenaltyMode,
			ShowScoreboardAfter: true,
		},
		Participants: make([]string, len(users)),
		Problems:     make([]model.Problem, cfg.Problems),
	}
	for i, u := range users {
		c.Participants[i] = u.ID
	}
	for j := range c.Problems {
		c.Problems[j] = model.Problem{
			ID:     fmt.Sprintf("%s-p%d", id, j+1),
			Alias:  problemAlias(j),
			Points: float64((j + 1) * problemPointsStep),
		}
	}

	windowMinutes := cfg.Duration.Minutes()
	c.Runs = make([]model.Run, 0, len(users)*cfg.RunsPerParticipant)
	for _, u := range users {
		ability := drawAbility()
		for k := 0; k < cfg.RunsPerParticipant; k++ {
			p := c.Problems[getRandomInt(len(c.Problems))]
			delay := math.Round(getRandomFloat()*windowMinutes*percentScale) / percentScale
			c.Runs = append(c.Runs, generateRun(id, u.ID, p, cfg, delay, ability))
		}
	}
	sort.SliceStable(c.Runs, func(a, b int) bool {
		return c.Runs[a].SubmittedAt.Before(c.Runs[b].SubmittedAt)
	})
	return c
}

// generateRun grades a single synthetic submission. The run is accepted with
// probability ability, otherwise it scores a partial fraction below ability.
func generateRun(contestID, userID string, p model.Problem, cfg *Config, delay, ability float64) model.Run {
	r := model.Run{
		Token:         uuid.NewString(),
		ContestID:     contestID,
		ProblemID:     p.ID,
		ParticipantID: userID,
		SubmittedAt:   cfg.Start.Add(time.Duration(delay * float64(time.Minute))).Truncate(time.Second),
		SubmitDelay:   delay,
		Status:        model.StatusReady,
		Test:          getRandomInt(percentScale) < cfg.TestRunPercent,
	}

	switch {
	case getRandomFloat() < ability:
		r.Score = 1
		r.Verdict = model.VerdictAccepted
	default:
		r.Score = math.Round(getRandomFloat()*ability*percentScale) / percentScale
		if r.Score > 0 {
			r.Verdict = model.VerdictPartiallyAccepted
		} else {
			r.Verdict = model.VerdictWrongAnswer
		}
	}
	r.ContestScore = math.Round(p.Points*r.Score*percentScale) / percentScale
	return r
}

// drawAbility picks a skill tier for one participant.
func drawAbility() float64 {
	switch getRandomInt(tierCount) {
	case tierElite:
		return eliteAbility
	case tierStrong:
		return strongAbility
	case tierAverage:
		return averageAbility
	default:
		return beginnerAbility
	}
}

// problemAlias returns A..Z, then A1, B1, ... for larger problem sets.
func problemAlias(i int) string {
	const letters = 26
	alias := string(rune('A' + i%letters))
	if round := i / letters; round > 0 {
		alias += fmt.Sprintf("%d", round)
	}
	return alias
}
