package repository

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Fixture is the on-disk YAML form of a set of contests.
//
//	users:
//	  - {id: u1, username: alice, name: Alice}
//	contests:
//	  - id: c1
//	    start_time: 2024-01-01T10:00:00Z
//	    finish_time: 2024-01-01T15:00:00Z
//	    scoreboard_percent: 80
//	    participants: [u1]
//	    problems: [{id: p1, alias: A, points: 100}]
//	    runs: [...]
type Fixture struct {
	Users    []model.Participant `yaml:"users"`
	Contests []ContestFixture    `yaml:"contests"`
}

// ContestFixture is one contest with its roster, problems and runs.
type ContestFixture struct {
	model.Contest `yaml:",inline"`
	// Participants lists roster user ids.
	Participants []string        `yaml:"participants"`
	Problems     []model.Problem `yaml:"problems"`
	Runs         []model.Run     `yaml:"runs"`
}

// LoadFixture reads and validates a YAML fixture from path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks ids are unique and every reference resolves. Runs without
// a contest id inherit the enclosing contest.
func (f *Fixture) Validate() error {
	users := make(map[string]struct{}, len(f.Users))
	for _, u := range f.Users {
		if u.ID == "" || u.Username == "" {
			return fmt.Errorf("%w: user needs id and username", ErrInvalidFixture)
		}
		if _, dup := users[u.ID]; dup {
			return fmt.Errorf("%w: duplicate user %s", ErrInvalidFixture, u.ID)
		}
		users[u.ID] = struct{}{}
	}

	contests := make(map[string]struct{}, len(f.Contests))
	runIDs := make(map[int64]struct{})
	for i := range f.Contests {
		c := &f.Contests[i]
		if c.ID == "" {
			return fmt.Errorf("%w: contest without id", ErrInvalidFixture)
		}
		if _, dup := contests[c.ID]; dup {
			return fmt.Errorf("%w: duplicate contest %s", ErrInvalidFixture, c.ID)
		}
		contests[c.ID] = struct{}{}

		for _, id := range c.Participants {
			if _, ok := users[id]; !ok {
				return fmt.Errorf("%w: contest %s lists unknown user %s", ErrInvalidFixture, c.ID, id)
			}
		}
		problems := make(map[string]struct{}, len(c.Problems))
		aliases := make(map[string]struct{}, len(c.Problems))
		for _, p := range c.Problems {
			if p.ID == "" || p.Alias == "" {
				return fmt.Errorf("%w: contest %s has a problem without id or alias", ErrInvalidFixture, c.ID)
			}
			if _, dup := problems[p.ID]; dup {
				return fmt.Errorf("%w: contest %s repeats problem %s", ErrInvalidFixture, c.ID, p.ID)
			}
			if _, dup := aliases[p.Alias]; dup {
				return fmt.Errorf("%w: contest %s repeats alias %s", ErrInvalidFixture, c.ID, p.Alias)
			}
			problems[p.ID] = struct{}{}
			aliases[p.Alias] = struct{}{}
		}
		for j := range c.Runs {
			r := &c.Runs[j]
			if r.ContestID == "" {
				r.ContestID = c.ID
			}
			if r.ContestID != c.ID {
				return fmt.Errorf("%w: run %d filed under contest %s belongs to %s", ErrInvalidFixture, r.ID, c.ID, r.ContestID)
			}
			if _, dup := runIDs[r.ID]; dup {
				return fmt.Errorf("%w: duplicate run %d", ErrInvalidFixture, r.ID)
			}
			runIDs[r.ID] = struct{}{}
			if _, ok := users[r.ParticipantID]; !ok {
				return fmt.Errorf("%w: run %d by unknown user %s", ErrInvalidFixture, r.ID, r.ParticipantID)
			}
			if _, ok := problems[r.ProblemID]; !ok {
				return fmt.Errorf("%w: run %d on unknown problem %s", ErrInvalidFixture, r.ID, r.ProblemID)
			}
		}
	}
	return nil
}
