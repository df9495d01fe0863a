package fixturegen

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/pkg/logger"
)

// Run generates and saves a fixture, or loads InputFile, then probes the
// configured server when BaseURL is set.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting fixture generation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("contests", config.Contests),
		logger.Int("participants", config.Participants),
		logger.Int("workers", config.Workers),
		logger.Any("verbose", config.Verbose))

	var (
		f   *repository.Fixture
		err error
	)
	if config.InputFile != "" {
		f, err = repository.LoadFixture(config.InputFile)
		if err != nil {
			return fmt.Errorf("loading fixture failed: %w", err)
		}
	} else {
		f, err = Generate(ctx, config, stats)
		if err != nil {
			return fmt.Errorf("fixture generation failed: %w", err)
		}
		if _, err := SaveFixture(ctx, config, f); err != nil {
			return fmt.Errorf("saving fixture failed: %w", err)
		}
	}

	if config.BaseURL != "" {
		if err := Probe(ctx, config, f, stats); err != nil {
			return fmt.Errorf("probe failed: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)
	return nil
}

// displayFinalStats logs the final statistics.
func displayFinalStats(stats *Stats) {
	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("contestsGenerated", stats.ContestsGenerated),
		logger.Int("usersGenerated", stats.UsersGenerated),
		logger.Int("runsGenerated", stats.RunsGenerated),
		logger.Int("contestsProbed", stats.ContestsProbed),
		logger.Int("contestsMatching", stats.ContestsMatching),
		logger.String("duration", stats.Duration.String()))
}
