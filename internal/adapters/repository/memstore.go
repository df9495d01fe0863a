package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

type contestData struct {
	contest  model.Contest
	roster   []string
	problems []model.Problem
	runs     []model.Run
}

// MemoryStore is an in-memory Store seeded from fixtures.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]model.Participant
	contests map[string]*contestData
	nextRun  int64
	closed   bool
	logger   logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := applyOptions("memstore", opts)
	return &MemoryStore{
		users:    make(map[string]model.Participant),
		contests: make(map[string]*contestData),
		logger:   o.logger,
	}
}

// NewMemoryStoreFromFixture creates a store holding the fixture's contents.
func NewMemoryStoreFromFixture(f *Fixture, opts ...Option) (*MemoryStore, error) {
	s := NewMemoryStore(opts...)
	if err := s.Import(context.Background(), f); err != nil {
		return nil, err
	}
	return s, nil
}

// Import validates f and adds its users, contests and runs. Existing
// contests with the same id are replaced.
func (s *MemoryStore) Import(ctx context.Context, f *Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range f.Users {
		s.users[u.ID] = u
	}
	runs := 0
	for _, c := range f.Contests {
		d := &contestData{
			contest:  c.Contest,
			roster:   slices.Clone(c.Participants),
			problems: slices.Clone(c.Problems),
			runs:     slices.Clone(c.Runs),
		}
		for _, r := range d.runs {
			s.nextRun = max(s.nextRun, r.ID)
		}
		runs += len(d.runs)
		s.contests[c.ID] = d
	}
	s.logger.Info(ctx, "fixture imported",
		logger.Int("users", len(f.Users)),
		logger.Int("contests", len(f.Contests)),
		logger.Int("runs", runs),
	)
	return nil
}

// AddRun stores r, replacing any run with the same id. A zero id is assigned
// the next free id. Returns the stored run.
func (s *MemoryStore) AddRun(_ context.Context, r model.Run) (model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.contests[r.ContestID]
	if !ok {
		return model.Run{}, fmt.Errorf("%w: %s", ErrContestNotFound, r.ContestID)
	}
	if _, ok := s.users[r.ParticipantID]; !ok {
		return model.Run{}, fmt.Errorf("%w: unknown user %s", ErrInvalidFixture, r.ParticipantID)
	}
	if r.ID == 0 {
		s.nextRun++
		r.ID = s.nextRun
	} else {
		s.nextRun = max(s.nextRun, r.ID)
	}
	for i := range d.runs {
		if d.runs[i].ID == r.ID {
			d.runs[i] = r
			return r, nil
		}
	}
	d.runs = append(d.runs, r)
	return r, nil
}

func (s *MemoryStore) contest(contestID string) (*contestData, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}
	d, ok := s.contests[contestID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContestNotFound, contestID)
	}
	return d, nil
}

func observe(query string, start time.Time) {
	metrics.RecordStoreQueryLatency(query, metrics.Since(start))
}

// Contest implements Store.
func (s *MemoryStore) Contest(_ context.Context, contestID string) (*model.Contest, error) {
	defer observe("contest", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.contest(contestID)
	if err != nil {
		return nil, err
	}
	c := d.contest
	return &c, nil
}

// ListParticipants implements Store.
func (s *MemoryStore) ListParticipants(_ context.Context, contestID string, showAll bool, filter []string) ([]model.Participant, error) {
	defer observe("list_participants", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.contest(contestID)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(d.roster))
	for _, id := range d.roster {
		ids[id] = struct{}{}
	}
	for i := range d.runs {
		if d.runs[i].VisibleTo(showAll) {
			ids[d.runs[i].ParticipantID] = struct{}{}
		}
	}

	out := make([]model.Participant, 0, len(ids))
	for id := range ids {
		p, ok := s.users[id]
		if !ok {
			continue
		}
		if len(filter) > 0 && !slices.Contains(filter, p.Username) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Participant) int {
		return strings.Compare(a.Username, b.Username)
	})
	return out, nil
}

// ListProblems implements Store.
func (s *MemoryStore) ListProblems(_ context.Context, contestID string) ([]model.Problem, error) {
	defer observe("list_problems", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.contest(contestID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(d.problems), nil
}

// BestRun implements Store.
func (s *MemoryStore) BestRun(_ context.Context, contestID, problemID, participantID string, limit int64, showAll bool) (*model.Run, error) {
	defer observe("best_run", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.contest(contestID)
	if err != nil {
		return nil, err
	}

	var best *model.Run
	for i := range d.runs {
		r := &d.runs[i]
		if r.ProblemID != problemID || r.ParticipantID != participantID {
			continue
		}
		if r.Status.Pending() || !r.VisibleTo(showAll) || !r.Before(limit) {
			continue
		}
		if best == nil || betterRun(r, best) {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

// betterRun orders by score desc, then submission time asc, then id asc.
func betterRun(a, b *model.Run) bool {
	if a.ContestScore != b.ContestScore {
		return a.ContestScore > b.ContestScore
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.ID < b.ID
}

// precedes reports whether a was submitted before b, breaking ties by id.
func precedes(a, b *model.Run) bool {
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.ID < b.ID
}

// CountWrongRuns implements Store.
func (s *MemoryStore) CountWrongRuns(_ context.Context, contestID, problemID, participantID string, excludingRunID int64, showAll bool) (int, error) {
	defer observe("count_wrong_runs", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.contest(contestID)
	if err != nil {
		return 0, err
	}

	var pivot *model.Run
	for i := range d.runs {
		if d.runs[i].ID == excludingRunID {
			pivot = &d.runs[i]
			break
		}
	}
	if pivot == nil {
		return 0, nil
	}

	n := 0
	for i := range d.runs {
		r := &d.runs[i]
		if r.ID == excludingRunID || r.ProblemID != problemID || r.ParticipantID != participantID {
			continue
		}
		if r.Status.Pending() || r.Verdict.Passing() || !r.VisibleTo(showAll) {
			continue
		}
		if precedes(r, pivot) {
			n++
		}
	}
	return n, nil
}

// HasPendingRuns implements Store.
func (s *MemoryStore) HasPendingRuns(_ context.Context, contestID string, showAll bool) (bool, error) {
	defer observe("has_pending_runs", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.contest(contestID)
	if err != nil {
		return false, err
	}
	for i := range d.runs {
		if d.runs[i].Status.Pending() && d.runs[i].VisibleTo(showAll) {
			return true, nil
		}
	}
	return false, nil
}

// ListRuns implements Store.
func (s *MemoryStore) ListRuns(_ context.Context, contestID string, order model.RunOrder, showAll bool) ([]model.Run, error) {
	defer observe("list_runs", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.contest(contestID)
	if err != nil {
		return nil, err
	}

	out := make([]model.Run, 0, len(d.runs))
	for i := range d.runs {
		if !d.runs[i].Status.Pending() && d.runs[i].VisibleTo(showAll) {
			out = append(out, d.runs[i])
		}
	}
	slices.SortFunc(out, func(a, b model.Run) int {
		if order == model.OrderBySubmitDelay && a.SubmitDelay != b.SubmitDelay {
			if a.SubmitDelay < b.SubmitDelay {
				return -1
			}
			return 1
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Compare(b.SubmittedAt)
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
