package fixturegen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/scoreboard/internal/adapters/repository"
	app "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
)

// HTTPClient wraps http.Client with a base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// get performs a GET request and returns the body of a 200 response.
func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, body)
	}
	return body, nil
}

// Probe checks a server started with fixture f: every contest's admin
// standings are fetched over HTTP and compared with the standings computed
// in-process from the same fixture. Admin standings count the whole window,
// so the comparison does not depend on either side's clock.
func Probe(ctx context.Context, config *Config, f *repository.Fixture, stats *Stats) error {
	cfg := config.withDefaults()
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	logger.Get().Info(ctx, "checking service health")
	if _, err := client.get(ctx, "/healthz"); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	store, err := repository.NewMemoryStoreFromFixture(f)
	if err != nil {
		return err
	}
	local := app.New(store, app.WithWarmup(false), app.WithLogger(logger.Get().Named("probe")))
	defer local.Stop()

	var mismatched []string
	for _, c := range f.Contests {
		want, err := local.Standings(ctx, app.StandingsRequest{ContestID: c.ID, View: model.AdminView})
		if err != nil {
			return fmt.Errorf("local standings of %s: %w", c.ID, err)
		}

		body, err := client.get(ctx, "/contests/"+url.PathEscape(c.ID)+"/standings?mode=admin")
		if err != nil {
			return err
		}
		var got types.Snapshot
		if err := json.Unmarshal(body, &got); err != nil {
			return fmt.Errorf("decode standings of %s: %w", c.ID, err)
		}

		if stats != nil {
			stats.ContestsProbed++
		}
		if err := compareSnapshots(want, &got); err != nil {
			mismatched = append(mismatched, c.ID)
			logger.Get().Warn(ctx, "standings mismatch", logger.String("contest", c.ID), logger.Error(err))
			continue
		}
		if stats != nil {
			stats.ContestsMatching++
		}
		if cfg.Verbose {
			logger.Get().Info(ctx, "standings match",
				logger.String("contest", c.ID),
				logger.Int("rows", len(got.Ranking)))
		}
	}

	if len(mismatched) > 0 {
		return fmt.Errorf("standings differ for %d contests: %v", len(mismatched), mismatched)
	}
	return nil
}

// compareSnapshots checks the ranked order, places and totals of two snapshots.
func compareSnapshots(want, got *types.Snapshot) error {
	if len(want.Ranking) != len(got.Ranking) {
		return fmt.Errorf("expected %d rows, got %d", len(want.Ranking), len(got.Ranking))
	}
	for i := range want.Ranking {
		w, g := want.Ranking[i], got.Ranking[i]
		if w.Username != g.Username || w.Place != g.Place || w.Total != g.Total {
			return fmt.Errorf("row %d: expected %s place %d total %+v, got %s place %d total %+v",
				i, w.Username, w.Place, w.Total, g.Username, g.Place, g.Total)
		}
	}
	return nil
}
