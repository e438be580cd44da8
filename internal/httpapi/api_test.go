package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"

	"jobscout-engine/internal/clock"
	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/httpapi"
	"jobscout-engine/internal/metrics"
	"jobscout-engine/internal/poll"
	"jobscout-engine/internal/rank"
	"jobscout-engine/internal/scheduler"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/store"
)

type apiFixture struct {
	srv     *httptest.Server
	db      *store.DB
	sched   *scheduler.Scheduler
	cfgPath string
	cfgVal  *atomic.Value
}

func newAPI(t *testing.T) apiFixture {
	dir := t.TempDir()
	db, err := store.OpenAndMigrate(filepath.Join(dir, "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	cfg := config.Default()
	cfg.Portals = []domain.Portal{{
		Name:      "rojgar",
		BaseURL:   "https://rojgar.example/latest",
		Enabled:   true,
		Every:     time.Hour,
		Selectors: domain.Selectors{Container: "li.job", Title: "a"},
	}}
	cfgPath := filepath.Join(dir, "config.yml")
	if err := config.SaveAtomic(cfgPath, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	fc := clock.NewFake(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := events.NewHub()
	engine := rank.New(db, cfg, fc, nil, m)
	runner := poll.NewRunner(cfg, poll.Deps{
		DB:      db,
		Scraper: scrape.New(scrape.OptionsFromConfig(cfg), scrape.Deps{Clock: fc}),
		Engine:  engine,
		Hub:     hub,
		Clock:   fc,
	})
	sched := scheduler.New(fc, nil, m)
	if err := runner.Register(sched, cfg); err != nil {
		t.Fatalf("register: %v", err)
	}

	srv := httptest.NewServer(httpapi.NewHandler(httpapi.Deps{
		DB:        db,
		Scheduler: sched,
		Runner:    runner,
		Engine:    engine,
		Hub:       hub,
		CfgVal:    &cfgVal,
		CfgPath:   cfgPath,
		Gatherer:  reg,
	}))
	return apiFixture{srv: srv, db: db, sched: sched, cfgPath: cfgPath, cfgVal: &cfgVal}
}

func (f apiFixture) close() {
	f.srv.Close()
	f.sched.Stop()
	_ = f.db.Close()
}

func (f apiFixture) do(method, path string, body any) (int, []byte) {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, f.srv.URL+path, rd)
	resp, err := http.DefaultClient.Do(req)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func errorCode(b []byte) string {
	var e httpapi.APIError
	_ = json.Unmarshal(b, &e)
	return e.Error.Code
}

func TestOperatorAPI(t *testing.T) {
	Convey("Given a running operator API", t, func() {
		f := newAPI(t)
		Reset(f.close)

		Convey("health reports the store and job count", func() {
			code, body := f.do(http.MethodGet, "/health", nil)
			So(code, ShouldEqual, http.StatusOK)
			var got map[string]any
			So(json.Unmarshal(body, &got), ShouldBeNil)
			So(got["ok"], ShouldEqual, true)
			So(got["jobs"], ShouldEqual, 3)
		})

		Convey("unsupported methods use the error envelope", func() {
			code, body := f.do(http.MethodDelete, "/schedule", nil)
			So(code, ShouldEqual, http.StatusMethodNotAllowed)
			So(errorCode(body), ShouldEqual, "method_not_allowed")
		})

		Convey("the schedule lists and force-runs jobs", func() {
			code, body := f.do(http.MethodGet, "/schedule", nil)
			So(code, ShouldEqual, http.StatusOK)
			var jobs []scheduler.JobInfo
			So(json.Unmarshal(body, &jobs), ShouldBeNil)
			So(jobs, ShouldHaveLength, 3)
			So(jobs[2].ID, ShouldEqual, "portal:rojgar")
			So(jobs[2].Trigger, ShouldEqual, "interval[1h0m0s]")

			code, _ = f.do(http.MethodPost, "/schedule/run?id=maintenance", nil)
			So(code, ShouldEqual, http.StatusAccepted)

			code, body = f.do(http.MethodPost, "/schedule/run?id=ghost", nil)
			So(code, ShouldEqual, http.StatusNotFound)
			So(errorCode(body), ShouldEqual, "unknown_job")

			code, _ = f.do(http.MethodPost, "/schedule/run", nil)
			So(code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("disabling a portal persists it and unschedules the job", func() {
			code, _ := f.do(http.MethodPost, "/portals/disable?name=rojgar", nil)
			So(code, ShouldEqual, http.StatusOK)

			saved, err := config.Load(f.cfgPath)
			So(err, ShouldBeNil)
			So(saved.Portals[0].Enabled, ShouldBeFalse)
			So(saved.Portals[0].Every, ShouldEqual, time.Hour)
			So(f.cfgVal.Load().(config.Config).Portals[0].Enabled, ShouldBeFalse)
			So(f.sched.Jobs(), ShouldHaveLength, 2)

			code, _ = f.do(http.MethodPost, "/portals/enable?name=rojgar", nil)
			So(code, ShouldEqual, http.StatusOK)
			So(f.sched.Jobs(), ShouldHaveLength, 3)

			code, body := f.do(http.MethodPost, "/portals/enable?name=nobody", nil)
			So(code, ShouldEqual, http.StatusNotFound)
			So(errorCode(body), ShouldEqual, "unknown_portal")
		})

		Convey("scoring and outcomes round-trip through the engine", func() {
			_, err := f.db.InsertPosting(context.Background(), domain.Posting{
				ID: "p1", Title: "Bank PO", Organization: "IBPS", Location: "All India",
				Category: "Banking", Education: "Graduate", Fingerprint: "fp-p1",
			})
			So(err, ShouldBeNil)

			profile := domain.Profile{CandidateID: "c1", Education: "Graduate", Age: 24, Region: "Kerala"}
			code, body := f.do(http.MethodPost, "/score", map[string]any{"postingId": "p1", "profile": profile})
			So(code, ShouldEqual, http.StatusOK)
			var m rank.Match
			So(json.Unmarshal(body, &m), ShouldBeNil)
			So(m.Score, ShouldBeBetweenOrEqual, 0, 100)
			So(m.Breakdown.Region, ShouldEqual, 20)

			code, body = f.do(http.MethodPost, "/score", map[string]any{"postingId": "nope", "profile": profile})
			So(code, ShouldEqual, http.StatusNotFound)
			So(errorCode(body), ShouldEqual, "unknown_posting")

			report := map[string]any{"postingId": "p1", "candidateId": "c1", "outcome": "saved"}
			code, _ = f.do(http.MethodPost, "/outcome", report)
			So(code, ShouldEqual, http.StatusOK)
			code, body = f.do(http.MethodPost, "/outcome", report)
			So(code, ShouldEqual, http.StatusConflict)
			So(errorCode(body), ShouldEqual, "no_pending_match")

			report["outcome"] = "maybe"
			code, body = f.do(http.MethodPost, "/outcome", report)
			So(code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(body), ShouldEqual, "invalid_outcome")

			code, body = f.do(http.MethodGet, "/metrics", nil)
			So(code, ShouldEqual, http.StatusOK)
			So(string(body), ShouldContainSubstring, "jobscout_match_score")
			So(string(body), ShouldContainSubstring, `jobscout_match_outcomes_total{outcome="saved"} 1`)
		})

		Convey("scoring follows scoring.use_learning unless the request says otherwise", func() {
			ctx := context.Background()
			_, err := f.db.InsertPosting(ctx, domain.Posting{
				ID: "p2", Title: "SSC CGL", Organization: "SSC", Location: "All India",
				Category: "SSC", Education: "Graduate", Fingerprint: "fp-p2",
			})
			So(err, ShouldBeNil)
			So(f.db.UpsertPattern(ctx, domain.LearnedPattern{
				Education: "Graduate", Region: "kerala", AvgSuccessScore: 100, Confidence: 1, Samples: 4,
			}), ShouldBeNil)

			profile := domain.Profile{CandidateID: "c2", Education: "Graduate", Age: 24, Region: "Kerala"}
			score := func(body map[string]any) rank.Match {
				code, raw := f.do(http.MethodPost, "/score", body)
				So(code, ShouldEqual, http.StatusOK)
				var m rank.Match
				So(json.Unmarshal(raw, &m), ShouldBeNil)
				return m
			}

			So(score(map[string]any{"postingId": "p2", "profile": profile}).Breakdown.MLAdjustment, ShouldBeGreaterThan, 0)

			cfg := f.cfgVal.Load().(config.Config)
			cfg.Scoring.UseLearning = false
			f.cfgVal.Store(cfg)

			So(score(map[string]any{"postingId": "p2", "profile": profile}).Breakdown.MLAdjustment, ShouldEqual, 0)
			So(score(map[string]any{"postingId": "p2", "profile": profile, "useLearning": true}).Breakdown.MLAdjustment, ShouldBeGreaterThan, 0)
		})

		Convey("portals report their remaining hourly budget", func() {
			code, body := f.do(http.MethodGet, "/portals", nil)
			So(code, ShouldEqual, http.StatusOK)
			var portals []struct {
				Name            string `json:"name"`
				BudgetRemaining int    `json:"budgetRemaining"`
				BudgetLimit     int    `json:"budgetLimit"`
			}
			So(json.Unmarshal(body, &portals), ShouldBeNil)
			So(portals, ShouldHaveLength, 1)
			So(portals[0].Name, ShouldEqual, "rojgar")
			So(portals[0].BudgetLimit, ShouldEqual, config.Default().Harvest.DefaultRateLimit)
			So(portals[0].BudgetRemaining, ShouldEqual, portals[0].BudgetLimit)
		})

		Convey("learned patterns and a candidate's match log are listed", func() {
			ctx := context.Background()
			code, body := f.do(http.MethodGet, "/patterns", nil)
			So(code, ShouldEqual, http.StatusOK)
			So(string(bytes.TrimSpace(body)), ShouldEqual, "[]")

			So(f.db.UpsertPattern(ctx, domain.LearnedPattern{
				Education: "Graduate", Region: "kerala", AvgSuccessScore: 70, Confidence: 0.5, Samples: 2,
			}), ShouldBeNil)
			code, body = f.do(http.MethodGet, "/patterns", nil)
			So(code, ShouldEqual, http.StatusOK)
			var pats []domain.LearnedPattern
			So(json.Unmarshal(body, &pats), ShouldBeNil)
			So(pats, ShouldHaveLength, 1)
			So(pats[0].Region, ShouldEqual, "kerala")

			_, err := f.db.InsertPosting(ctx, domain.Posting{
				ID: "p3", Title: "LIC AAO", Organization: "LIC", Location: "All India",
				Category: "Insurance", Education: "Graduate", Fingerprint: "fp-p3",
			})
			So(err, ShouldBeNil)
			profile := domain.Profile{CandidateID: "c3", Education: "Graduate", Age: 25, Region: "Kerala"}
			code, _ = f.do(http.MethodPost, "/score", map[string]any{"postingId": "p3", "profile": profile})
			So(code, ShouldEqual, http.StatusOK)

			code, body = f.do(http.MethodGet, "/matches?candidate=c3", nil)
			So(code, ShouldEqual, http.StatusOK)
			var logs []domain.MatchLogEntry
			So(json.Unmarshal(body, &logs), ShouldBeNil)
			So(logs, ShouldHaveLength, 1)
			So(logs[0].PostingID, ShouldEqual, "p3")
			So(logs[0].Outcome, ShouldEqual, domain.OutcomeUnset)

			code, body = f.do(http.MethodGet, "/matches", nil)
			So(code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(body), ShouldEqual, "missing_candidate")
		})

		Convey("postings can be filtered by status", func() {
			code, body := f.do(http.MethodGet, "/postings?status=draft", nil)
			So(code, ShouldEqual, http.StatusOK)
			So(string(bytes.TrimSpace(body)), ShouldEqual, "[]")

			code, body = f.do(http.MethodGet, "/postings?status=archived", nil)
			So(code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(body), ShouldEqual, "invalid_status")
		})

		Convey("runs are listed newest first", func() {
			code, body := f.do(http.MethodGet, "/runs", nil)
			So(code, ShouldEqual, http.StatusOK)
			So(string(bytes.TrimSpace(body)), ShouldEqual, "[]")
		})
	})
}
