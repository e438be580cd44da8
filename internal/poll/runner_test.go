package poll_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"jobscout-engine/internal/clock"
	"jobscout-engine/internal/config"
	"jobscout-engine/internal/dedupe"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/poll"
	"jobscout-engine/internal/rank"
	"jobscout-engine/internal/scheduler"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/scrape/util"
	"jobscout-engine/internal/store"
)

var now = time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)

func page(n int, title string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for range n {
		fmt.Fprintf(&b, `<div class="job"><h3>%s</h3><span class="org">State PSC</span><p>Graduate posts, age 21 to 35.</p></div>`, title)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func portalFor(name, base string) domain.Portal {
	return domain.Portal{
		Name:             name,
		BaseURL:          base,
		Enabled:          true,
		Every:            30 * time.Minute,
		RateLimitPerHour: 5,
		Selectors:        domain.Selectors{Container: "div.job", Title: "h3", Organization: ".org", Description: "p"},
	}
}

type fixture struct {
	db     *store.DB
	fc     *clock.Fake
	runner *poll.Runner
	hub    *events.Hub
}

func newFixture(t *testing.T, withScraper bool) fixture {
	db, err := store.OpenAndMigrate(filepath.Join(t.TempDir(), "poll.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	fc := clock.NewFake(now)
	cfg := config.Default()
	hub := events.NewHub()

	var sc *scrape.Scraper
	if withScraper {
		sc = scrape.New(scrape.OptionsFromConfig(cfg), scrape.Deps{
			Budget:   util.NewDomainBudget(fc),
			Detector: dedupe.New(),
			Lookup:   db,
			Clock:    fc,
		})
	}
	r := poll.NewRunner(cfg, poll.Deps{
		DB:      db,
		Scraper: sc,
		Engine:  rank.New(db, cfg, fc, nil, nil),
		Hub:     hub,
		Clock:   fc,
	})
	return fixture{db: db, fc: fc, runner: r, hub: hub}
}

func TestHarvestPortal(t *testing.T) {
	Convey("Given a portal listing one posting", t, func() {
		var body atomic.Value
		body.Store(page(1, "PSC Assistant Section Officer"))
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body.Load().(string))
		}))
		Reset(srv.Close)

		f := newFixture(t, true)
		Reset(func() { _ = f.db.Close() })
		ctx := context.Background()
		p := portalFor("psc", srv.URL)

		Convey("the first run stores it as a draft and records a summary", func() {
			feed, cancel := f.hub.Subscribe()
			defer cancel()

			sum := f.runner.HarvestPortal(ctx, p)
			So(sum.Status, ShouldEqual, domain.RunOK)
			So(sum.Found, ShouldEqual, 1)
			So(sum.Added, ShouldEqual, 1)
			So(sum.JobID, ShouldEqual, "portal:psc")

			posts, err := f.db.ListPostings(ctx, store.ListPostingsOpts{Status: domain.StatusDraft})
			So(err, ShouldBeNil)
			So(posts, ShouldHaveLength, 1)
			So(posts[0].Category, ShouldEqual, "State PSC")

			runs, err := f.db.ListRuns(ctx, "portal:psc", 10)
			So(err, ShouldBeNil)
			So(runs, ShouldHaveLength, 1)
			So(runs[0].Added, ShouldEqual, 1)

			So((<-feed).Type, ShouldEqual, events.PostingsAdded)
			So((<-feed).Type, ShouldEqual, events.RunFinished)

			Convey("ten identical items later produce no new rows", func() {
				body.Store(page(10, "PSC Assistant Section Officer"))
				again := f.runner.HarvestPortal(ctx, p)
				So(again.Status, ShouldEqual, domain.RunOK)
				So(again.Found, ShouldEqual, 10)
				So(again.Added, ShouldEqual, 0)
				So(again.Duplicates, ShouldEqual, 10)

				posts, err := f.db.ListPostings(ctx, store.ListPostingsOpts{})
				So(err, ShouldBeNil)
				So(posts, ShouldHaveLength, 1)
			})
		})

		Convey("an exhausted budget is recorded as rate limited", func() {
			p.RateLimitPerHour = 1
			So(f.runner.HarvestPortal(ctx, p).Status, ShouldEqual, domain.RunOK)
			sum := f.runner.HarvestPortal(ctx, p)
			So(sum.Status, ShouldEqual, domain.RunRateLimited)
			So(sum.Added, ShouldEqual, 0)
		})

		Convey("HarvestAll isolates a failing portal", func() {
			down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer down.Close()

			sums := f.runner.HarvestAll(ctx, []domain.Portal{p, portalFor("broken", down.URL)})
			So(sums, ShouldHaveLength, 2)
			So(sums[0].Status, ShouldEqual, domain.RunOK)
			So(sums[0].Added, ShouldEqual, 1)
			So(sums[1].Status, ShouldEqual, domain.RunFailed)
			So(sums[1].Error, ShouldContainSubstring, "3 attempts")
		})
	})

	Convey("A panic inside a harvest becomes a failed summary", t, func() {
		f := newFixture(t, false)
		Reset(func() { _ = f.db.Close() })

		sum := f.runner.HarvestPortal(context.Background(), portalFor("nil", "http://example.invalid"))
		So(sum.Status, ShouldEqual, domain.RunFailed)
		So(sum.Error, ShouldStartWith, "panic:")

		runs, err := f.db.ListRuns(context.Background(), "portal:nil", 10)
		So(err, ShouldBeNil)
		So(runs, ShouldHaveLength, 1)
		So(runs[0].Status, ShouldEqual, domain.RunFailed)
	})
}

func TestMaintenance(t *testing.T) {
	Convey("Given drafts and published postings of different ages", t, func() {
		f := newFixture(t, false)
		Reset(func() { _ = f.db.Close() })
		ctx := context.Background()

		seed := func(id string, status domain.Status, age time.Duration) {
			_, err := f.db.InsertPosting(ctx, domain.Posting{
				ID: id, Title: id, Fingerprint: "fp-" + id, Status: status, DiscoveredAt: now.Add(-age),
			})
			So(err, ShouldBeNil)
		}
		seed("old-draft", domain.StatusDraft, 8*24*time.Hour)
		seed("new-draft", domain.StatusDraft, 24*time.Hour)
		seed("old-pub", domain.StatusPublished, 31*24*time.Hour)
		seed("new-pub", domain.StatusPublished, 10*24*time.Hour)

		sum := f.runner.Maintenance(ctx)

		So(sum.Status, ShouldEqual, domain.RunOK)
		So(sum.Deleted, ShouldEqual, 1)
		So(sum.Expired, ShouldEqual, 1)

		_, err := f.db.GetPosting(ctx, "old-draft")
		So(err, ShouldWrap, store.ErrNotFound)
		p, err := f.db.GetPosting(ctx, "old-pub")
		So(err, ShouldBeNil)
		So(p.Status, ShouldEqual, domain.StatusExpired)
		p, err = f.db.GetPosting(ctx, "new-pub")
		So(err, ShouldBeNil)
		So(p.Status, ShouldEqual, domain.StatusPublished)

		runs, err := f.db.ListRuns(ctx, poll.MaintenanceJobID, 1)
		So(err, ShouldBeNil)
		So(runs[0].Deleted, ShouldEqual, 1)
	})
}

func TestRegister(t *testing.T) {
	Convey("Register schedules enabled portals and housekeeping", t, func() {
		f := newFixture(t, true)
		Reset(func() { _ = f.db.Close() })

		cfg := config.Default()
		off := portalFor("off", "https://off.example")
		off.Enabled = false
		cfg.Portals = []domain.Portal{portalFor("on", "https://on.example"), off}

		s := scheduler.New(f.fc, nil, nil)
		So(f.runner.Register(s, cfg), ShouldBeNil)

		ids := func() []string {
			var out []string
			for _, j := range s.Jobs() {
				out = append(out, j.ID)
			}
			return out
		}
		So(ids(), ShouldResemble, []string{"learning", "maintenance", "portal:on"})

		Convey("SyncPortal follows the enabled flag", func() {
			off.Enabled = true
			So(f.runner.SyncPortal(s, off), ShouldBeNil)
			So(f.runner.SyncPortal(s, off), ShouldBeNil)
			So(ids(), ShouldContain, "portal:off")

			off.Enabled = false
			So(f.runner.SyncPortal(s, off), ShouldBeNil)
			So(f.runner.SyncPortal(s, off), ShouldBeNil)
			So(ids(), ShouldNotContain, "portal:off")
		})
	})

	Convey("Toggling a portal off and on mid-crawl does not start a second crawl", t, func() {
		var hits atomic.Int32
		release := make(chan struct{})
		var once sync.Once
		open := func() { once.Do(func() { close(release) }) }
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			<-release
			fmt.Fprint(w, page(1, "PSC Assistant Section Officer"))
		}))

		f := newFixture(t, true)
		s := scheduler.New(f.fc, nil, nil)
		Reset(func() {
			open()
			s.Stop()
			srv.Close()
			_ = f.db.Close()
		})

		id := poll.PortalJobID("slow")
		p := portalFor("slow", srv.URL)
		So(f.runner.SyncPortal(s, p), ShouldBeNil)
		So(s.RunNow(id), ShouldBeNil)
		So(waitFor(func() bool { return hits.Load() == 1 }), ShouldBeTrue)

		p.Enabled = false
		So(f.runner.SyncPortal(s, p), ShouldBeNil)
		p.Enabled = true
		So(f.runner.SyncPortal(s, p), ShouldBeNil)

		So(errors.Is(s.RunNow(id), scheduler.ErrJobRunning), ShouldBeTrue)

		open()
		So(waitFor(func() bool { return !s.Jobs()[0].Running }), ShouldBeTrue)
		So(hits.Load(), ShouldEqual, 1)

		posts, err := f.db.ListPostings(context.Background(), store.ListPostingsOpts{Portal: "slow"})
		So(err, ShouldBeNil)
		So(posts, ShouldHaveLength, 1)
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
