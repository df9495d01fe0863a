package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
)

const schemaUp = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS contests (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    finish_time TIMESTAMP WITH TIME ZONE NOT NULL,
    scoreboard_percent INTEGER NOT NULL DEFAULT 100,
    penalty_per_wrong INTEGER NOT NULL DEFAULT 0,
    penalty_mode TEXT NOT NULL DEFAULT 'none',
    show_scoreboard_after BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS contest_participants (
    contest_id TEXT NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    PRIMARY KEY (contest_id, user_id)
);

CREATE TABLE IF NOT EXISTS problems (
    contest_id TEXT NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    alias TEXT NOT NULL,
    points DOUBLE PRECISION NOT NULL DEFAULT 0,
    position INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (contest_id, id),
    UNIQUE (contest_id, alias)
);

CREATE TABLE IF NOT EXISTS runs (
    id BIGINT PRIMARY KEY,
    token TEXT,
    contest_id TEXT NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
    problem_id TEXT NOT NULL,
    participant_id TEXT NOT NULL REFERENCES users(id),
    submitted_at TIMESTAMP WITH TIME ZONE NOT NULL,
    submit_delay DOUBLE PRECISION NOT NULL DEFAULT 0,
    score DOUBLE PRECISION NOT NULL DEFAULT 0,
    contest_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'new',
    verdict TEXT NOT NULL DEFAULT '',
    test BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_runs_cell ON runs(contest_id, problem_id, participant_id, contest_score DESC, submitted_at, id);
CREATE INDEX IF NOT EXISTS idx_runs_contest_time ON runs(contest_id, submitted_at, id);
CREATE INDEX IF NOT EXISTS idx_runs_pending ON runs(contest_id) WHERE status <> 'ready';
`

const runColumns = `id, COALESCE(token, ''), contest_id, problem_id, participant_id, submitted_at,
	submit_delay, score, contest_score, status, verdict, test`

// PostgresStore is a Store backed by a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to databaseURL and verifies the connection.
func NewPostgresStore(ctx context.Context, databaseURL string, opts ...Option) (*PostgresStore, error) {
	o := applyOptions("pgstore", opts)

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse database URL: %w", err)
	}
	if o.maxConns > 0 {
		poolConfig.MaxConns = o.maxConns
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, logger: o.logger}, nil
}

// EnsureSchema creates tables and indexes if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaUp); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	s.logger.Info(ctx, "schema ensured")
	return nil
}

// Import upserts the fixture's users, contests, problems and runs in one
// transaction.
func (s *PostgresStore) Import(ctx context.Context, f *Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, u := range f.Users {
			batch.Queue(`
				INSERT INTO users (id, username, name) VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, name = EXCLUDED.name
			`, u.ID, u.Username, u.Name)
		}
		for _, c := range f.Contests {
			batch.Queue(`
				INSERT INTO contests (id, title, start_time, finish_time, scoreboard_percent,
					penalty_per_wrong, penalty_mode, show_scoreboard_after)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, start_time = EXCLUDED.start_time,
					finish_time = EXCLUDED.finish_time, scoreboard_percent = EXCLUDED.scoreboard_percent,
					penalty_per_wrong = EXCLUDED.penalty_per_wrong, penalty_mode = EXCLUDED.penalty_mode,
					show_scoreboard_after = EXCLUDED.show_scoreboard_after
			`, c.ID, c.Title, c.StartTime, c.FinishTime, c.ScoreboardPercent,
				c.PenaltyPerWrong, string(c.PenaltyMode), c.ShowScoreboardAfter)
			for _, uid := range c.Participants {
				batch.Queue(`
					INSERT INTO contest_participants (contest_id, user_id) VALUES ($1, $2)
					ON CONFLICT DO NOTHING
				`, c.ID, uid)
			}
			for i, p := range c.Problems {
				batch.Queue(`
					INSERT INTO problems (contest_id, id, alias, points, position) VALUES ($1, $2, $3, $4, $5)
					ON CONFLICT (contest_id, id) DO UPDATE SET alias = EXCLUDED.alias,
						points = EXCLUDED.points, position = EXCLUDED.position
				`, c.ID, p.ID, p.Alias, p.Points, i)
			}
			for _, r := range c.Runs {
				batch.Queue(`
					INSERT INTO runs (id, token, contest_id, problem_id, participant_id, submitted_at,
						submit_delay, score, contest_score, status, verdict, test)
					VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
					ON CONFLICT (id) DO UPDATE SET token = EXCLUDED.token, submitted_at = EXCLUDED.submitted_at,
						submit_delay = EXCLUDED.submit_delay, score = EXCLUDED.score,
						contest_score = EXCLUDED.contest_score, status = EXCLUDED.status,
						verdict = EXCLUDED.verdict, test = EXCLUDED.test
				`, r.ID, r.Token, r.ContestID, r.ProblemID, r.ParticipantID, r.SubmittedAt,
					r.SubmitDelay, r.Score, r.ContestScore, string(r.Status), string(r.Verdict), r.Test)
			}
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// Contest implements Store.
func (s *PostgresStore) Contest(ctx context.Context, contestID string) (*model.Contest, error) {
	defer observe("contest", time.Now())

	var c model.Contest
	var mode string
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, start_time, finish_time, scoreboard_percent,
			penalty_per_wrong, penalty_mode, show_scoreboard_after
		FROM contests WHERE id = $1
	`, contestID).Scan(
		&c.ID, &c.Title, &c.StartTime, &c.FinishTime, &c.ScoreboardPercent,
		&c.PenaltyPerWrong, &mode, &c.ShowScoreboardAfter,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrContestNotFound, contestID)
	}
	if err != nil {
		return nil, dataAccess("contest", err)
	}
	c.PenaltyMode = model.PenaltyMode(mode)
	return &c, nil
}

// ListParticipants implements Store.
func (s *PostgresStore) ListParticipants(ctx context.Context, contestID string, showAll bool, filter []string) ([]model.Participant, error) {
	defer observe("list_participants", time.Now())

	if filter == nil {
		filter = []string{}
	}
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.username, u.name
		FROM users u
		WHERE (
			EXISTS (SELECT 1 FROM contest_participants cp WHERE cp.contest_id = $1 AND cp.user_id = u.id)
			OR EXISTS (SELECT 1 FROM runs r WHERE r.contest_id = $1 AND r.participant_id = u.id AND ($2 OR NOT r.test))
		)
		AND (cardinality($3::text[]) = 0 OR u.username = ANY($3::text[]))
		ORDER BY u.username
	`, contestID, showAll, filter)
	if err != nil {
		return nil, dataAccess("list participants", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Participant, error) {
		var p model.Participant
		err := row.Scan(&p.ID, &p.Username, &p.Name)
		return p, err
	})
	if err != nil {
		return nil, dataAccess("list participants", err)
	}
	return out, nil
}

// ListProblems implements Store.
func (s *PostgresStore) ListProblems(ctx context.Context, contestID string) ([]model.Problem, error) {
	defer observe("list_problems", time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT id, alias, points FROM problems WHERE contest_id = $1 ORDER BY position, alias
	`, contestID)
	if err != nil {
		return nil, dataAccess("list problems", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Problem, error) {
		var p model.Problem
		err := row.Scan(&p.ID, &p.Alias, &p.Points)
		return p, err
	})
	if err != nil {
		return nil, dataAccess("list problems", err)
	}
	return out, nil
}

// BestRun implements Store.
func (s *PostgresStore) BestRun(ctx context.Context, contestID, problemID, participantID string, limit int64, showAll bool) (*model.Run, error) {
	defer observe("best_run", time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE contest_id = $1 AND problem_id = $2 AND participant_id = $3
			AND status = 'ready' AND submitted_at < to_timestamp($4) AND ($5 OR NOT test)
		ORDER BY contest_score DESC, submitted_at ASC, id ASC
		LIMIT 1
	`, contestID, problemID, participantID, limit, showAll)
	if err != nil {
		return nil, dataAccess("best run", err)
	}
	run, err := pgx.CollectOneRow(rows, scanRun)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dataAccess("best run", err)
	}
	return &run, nil
}

// CountWrongRuns implements Store.
func (s *PostgresStore) CountWrongRuns(ctx context.Context, contestID, problemID, participantID string, excludingRunID int64, showAll bool) (int, error) {
	defer observe("count_wrong_runs", time.Now())

	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM runs w
		JOIN runs b ON b.id = $4
		WHERE w.contest_id = $1 AND w.problem_id = $2 AND w.participant_id = $3
			AND w.id <> b.id AND w.status = 'ready' AND w.verdict <> 'AC' AND ($5 OR NOT w.test)
			AND (w.submitted_at, w.id) < (b.submitted_at, b.id)
	`, contestID, problemID, participantID, excludingRunID, showAll).Scan(&n)
	if err != nil {
		return 0, dataAccess("count wrong runs", err)
	}
	return n, nil
}

// HasPendingRuns implements Store.
func (s *PostgresStore) HasPendingRuns(ctx context.Context, contestID string, showAll bool) (bool, error) {
	defer observe("has_pending_runs", time.Now())

	var pending bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM runs WHERE contest_id = $1 AND status <> 'ready' AND ($2 OR NOT test)
		)
	`, contestID, showAll).Scan(&pending)
	if err != nil {
		return false, dataAccess("has pending runs", err)
	}
	return pending, nil
}

// ListRuns implements Store.
func (s *PostgresStore) ListRuns(ctx context.Context, contestID string, order model.RunOrder, showAll bool) ([]model.Run, error) {
	defer observe("list_runs", time.Now())

	orderBy := "submitted_at, id"
	if order == model.OrderBySubmitDelay {
		orderBy = "submit_delay, submitted_at, id"
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE contest_id = $1 AND status = 'ready' AND ($2 OR NOT test)
		ORDER BY `+orderBy, contestID, showAll)
	if err != nil {
		return nil, dataAccess("list runs", err)
	}
	out, err := pgx.CollectRows(rows, scanRun)
	if err != nil {
		return nil, dataAccess("list runs", err)
	}
	return out, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanRun(row pgx.CollectableRow) (model.Run, error) {
	var (
		r       model.Run
		status  string
		verdict string
	)
	err := row.Scan(
		&r.ID, &r.Token, &r.ContestID, &r.ProblemID, &r.ParticipantID, &r.SubmittedAt,
		&r.SubmitDelay, &r.Score, &r.ContestScore, &status, &verdict, &r.Test,
	)
	r.Status = model.RunStatus(status)
	r.Verdict = model.Verdict(verdict)
	return r, err
}
