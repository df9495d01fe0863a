package replay_test

import (
	"testing"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/replay"
	. "github.com/smartystreets/goconvey/convey"
)

func graded(id int64, participant string, at int64, points float64, verdict model.Verdict) model.Run {
	return model.Run{
		ID:            id,
		ContestID:     "c1",
		ProblemID:     "p1",
		ParticipantID: participant,
		SubmittedAt:   time.Unix(at, 0),
		SubmitDelay:   float64(at) / 60,
		ContestScore:  points,
		Status:        model.StatusReady,
		Verdict:       verdict,
	}
}

func TestReplay(t *testing.T) {
	Convey("Given a contest with one participant and one problem", t, func() {
		contest := &model.Contest{
			ID:          "c1",
			StartTime:   time.Unix(0, 0),
			FinishTime:  time.Unix(100, 0),
			PenaltyMode: model.PenaltyNone,
		}
		in := replay.Input{
			Contest:      contest,
			Participants: []model.Participant{{ID: "u1", Username: "alice", Name: "Alice"}},
			Problems:     []model.Problem{{ID: "p1", Alias: "sum"}},
			Limit:        25,
		}

		Convey("When runs at t=10, 20 and 30 score 50, 50 and 100 with limit 25", func() {
			in.Runs = []model.Run{
				graded(1, "u1", 10, 50, model.VerdictPartiallyAccepted),
				graded(2, "u1", 20, 50, model.VerdictPartiallyAccepted),
				graded(3, "u1", 30, 100, model.VerdictAccepted),
			}
			events := replay.Replay(in)

			Convey("Then exactly one event is emitted for the first run", func() {
				So(len(events), ShouldEqual, 1)
				So(events[0].Username, ShouldEqual, "alice")
				So(events[0].Name, ShouldEqual, "Alice")
				So(events[0].Problem.Alias, ShouldEqual, "sum")
				So(events[0].Problem.Points, ShouldEqual, 50)
				So(events[0].Total.Points, ShouldEqual, 50)
				So(events[0].Delta, ShouldAlmostEqual, 10.0/60, 1e-9)
			})
		})

		Convey("When a run lands exactly on the limit", func() {
			in.Runs = []model.Run{graded(1, "u1", 25, 70, model.VerdictPartiallyAccepted)}

			Convey("Then it is not replayed", func() {
				So(replay.Replay(in), ShouldBeEmpty)
			})
		})

		Convey("When pending and test runs are present", func() {
			pending := graded(1, "u1", 5, 80, model.VerdictAccepted)
			pending.Status = model.StatusRunning
			test := graded(2, "u1", 6, 90, model.VerdictAccepted)
			test.Test = true
			in.Runs = []model.Run{pending, test}

			Convey("Then contestants see nothing", func() {
				So(replay.Replay(in), ShouldBeEmpty)
			})

			Convey("Then admins see the test run", func() {
				in.ShowAll = true
				events := replay.Replay(in)
				So(len(events), ShouldEqual, 1)
				So(events[0].Problem.Points, ShouldEqual, 90)
			})
		})

		Convey("When the contest charges penalty", func() {
			contest.PenaltyMode = model.PenaltyBySubmitDelay
			contest.PenaltyPerWrong = 20
			in.Limit = 100
			in.Runs = []model.Run{
				graded(1, "u1", 600, 0, model.VerdictWrongAnswer),
				graded(2, "u1", 1200, 40, model.VerdictPartiallyAccepted),
				graded(3, "u1", 1800, 100, model.VerdictAccepted),
			}
			for i := range in.Runs {
				in.Runs[i].SubmittedAt = time.Unix(int64(10*(i+1)), 0)
			}
			events := replay.Replay(in)

			Convey("Then each event carries the penalty of that run as best run", func() {
				So(len(events), ShouldEqual, 2)
				So(events[0].Problem.Penalty, ShouldEqual, 1*20+20)
				So(events[0].Delta, ShouldEqual, 20)
				So(events[1].Problem.Penalty, ShouldEqual, 2*20+30)
				So(events[1].Total.Penalty, ShouldEqual, 70)
				So(events[1].Total.Points, ShouldEqual, 100)
			})
		})

		Convey("When a run belongs to an unknown participant", func() {
			in.Runs = []model.Run{graded(1, "ghost", 10, 10, model.VerdictPartiallyAccepted)}
			events := replay.Replay(in)

			Convey("Then the participant id is used as the name", func() {
				So(len(events), ShouldEqual, 1)
				So(events[0].Username, ShouldEqual, "ghost")
				So(events[0].Name, ShouldEqual, "ghost")
			})
		})

		Convey("When a run is for a problem outside the contest", func() {
			r := graded(1, "u1", 10, 10, model.VerdictAccepted)
			r.ProblemID = "other"
			in.Runs = []model.Run{r}

			Convey("Then it is ignored", func() {
				So(replay.Replay(in), ShouldBeEmpty)
			})
		})
	})
}
