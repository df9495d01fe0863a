package grader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/scoreboard/internal/domain/scoring"
	"github.com/okian/scoreboard/pkg/logger"
)

func init() {
	_ = logger.Init()
}

var _ scoring.DetailFetcher = (*Client)(nil)

const detailJSON = `{
  "verdict": "PA",
  "score": 0.5,
  "groups": [
    {"group": "sample", "score": 0.5, "cases": [
      {"name": "1", "score": 1, "meta": {"status": "OK", "time": 0.01, "memory": 1024}},
      {"name": "2", "score": 0, "meta": {"status": "OK", "time": 0.02, "memory": 1024}, "out_diff": "-1\n+2"}
    ]}
  ],
  "source": "int main() {}"
}`

func TestClient_RunDetail(t *testing.T) {
	convey.Convey("Given a grader server", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			switch r.URL.Path {
			case "/api/runs/tok-1/details":
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(detailJSON))
			case "/api/runs/broken/details":
				_, _ = w.Write([]byte("{"))
			case "/api/runs/boom/details":
				http.Error(w, "judge offline", http.StatusBadGateway)
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		c, err := New(srv.URL+"/api/", WithTimeout(time.Second))
		convey.So(err, convey.ShouldBeNil)
		ctx := context.Background()

		convey.Convey("When the run exists", func() {
			d, err := c.RunDetail(ctx, "tok-1")

			convey.Convey("Then the detail is decoded as sent", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(d.Verdict, convey.ShouldEqual, "PA")
				convey.So(d.Groups, convey.ShouldHaveLength, 1)
				convey.So(d.Groups[0].Cases[1].OutDiff, convey.ShouldNotBeNil)
				convey.So(d.Source, convey.ShouldNotBeEmpty)
			})

			convey.Convey("Then the scoring correction marks differing cases wrong", func() {
				fixed := scoring.CorrectDetail(d)
				convey.So(fixed.Groups[0].Cases[0].Meta.Status, convey.ShouldEqual, "OK")
				convey.So(fixed.Groups[0].Cases[1].Meta.Status, convey.ShouldEqual, "WA")
				convey.So(fixed.Source, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the run is unknown", func() {
			_, err := c.RunDetail(ctx, "nope")

			convey.Convey("Then ErrRunNotFound is returned", func() {
				convey.So(errors.Is(err, ErrRunNotFound), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the grader fails", func() {
			_, err := c.RunDetail(ctx, "boom")

			convey.Convey("Then ErrUnexpectedStatus is returned", func() {
				convey.So(errors.Is(err, ErrUnexpectedStatus), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the body is not JSON", func() {
			_, err := c.RunDetail(ctx, "broken")

			convey.Convey("Then a decode error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "decode")
			})
		})

		convey.Convey("When the limiter is exhausted and the context is done", func() {
			limited, _ := New(srv.URL+"/api", WithRateLimit(0.001, 1))
			_, _ = limited.RunDetail(ctx, "tok-1")
			before := hits.Load()

			short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			_, err := limited.RunDetail(short, "tok-1")

			convey.Convey("Then the call fails without reaching the server", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "rate limit")
				convey.So(hits.Load(), convey.ShouldEqual, before)
			})
		})
	})

	convey.Convey("Given an invalid base url", t, func() {
		_, err := New("ftp://grader")

		convey.Convey("Then construction fails", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
