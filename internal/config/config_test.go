package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
)

const partial = `
harvest:
  max_attempts: 4
portals:
  - name: sarkari
    base_url: https://sarkari.example/latest
    enabled: true
    every: 30m
    selectors:
      container: div.job
      title: h3
`

func write(t *testing.T, name, body string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("A partial file is completed with defaults", t, func() {
		cfg, err := config.Load(write(t, "config.yml", partial))
		So(err, ShouldBeNil)
		So(cfg.Harvest.MaxAttempts, ShouldEqual, 4)
		So(cfg.Harvest.DefaultRateLimit, ShouldEqual, 10)
		So(cfg.Harvest.BackoffBase, ShouldEqual, time.Second)
		So(cfg.Dedupe.FuzzyThreshold, ShouldEqual, 0.85)
		So(cfg.Portals, ShouldHaveLength, 1)
		So(cfg.Portals[0].Every, ShouldEqual, 30*time.Minute)
		So(cfg.RateLimitFor(cfg.Portals[0]), ShouldEqual, 10)

		p, ok := cfg.Portal("sarkari")
		So(ok, ShouldBeTrue)
		So(p.Selectors.Title, ShouldEqual, "h3")
		_, ok = cfg.Portal("nope")
		So(ok, ShouldBeFalse)

		So(config.Validate(cfg), ShouldBeNil)
	})

	Convey("A missing file is an error", t, func() {
		_, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
		So(err, ShouldNotBeNil)
	})

	Convey("The shipped sample config is valid", t, func() {
		cfg, err := config.Load(filepath.Join("..", "..", "config", "config.yml"))
		So(err, ShouldBeNil)
		_, vr := config.NormalizeAndValidate(cfg)
		So(vr.Errors, ShouldBeEmpty)
		So(len(cfg.Portals), ShouldBeGreaterThan, 0)
	})
}

func TestValidate(t *testing.T) {
	Convey("Given the defaults plus one portal", t, func() {
		cfg := config.Default()
		cfg.Portals = []domain.Portal{{
			Name:      " sarkari ",
			BaseURL:   "https://sarkari.example/latest",
			Enabled:   true,
			Every:     time.Hour,
			Selectors: domain.Selectors{Container: "div.job"},
		}}

		Convey("it normalizes without touching the input", func() {
			out, vr := config.NormalizeAndValidate(cfg)
			So(vr.OK(), ShouldBeTrue)
			So(out.Portals[0].Name, ShouldEqual, "sarkari")
			So(cfg.Portals[0].Name, ShouldEqual, " sarkari ")
		})

		Convey("bad portals are reported together", func() {
			cfg.Portals = append(cfg.Portals, domain.Portal{
				Name:      "sarkari",
				BaseURL:   "ftp://x",
				Every:     30 * time.Second,
				Selectors: domain.Selectors{Container: "div[", Title: "h3"},
			})
			_, vr := config.NormalizeAndValidate(cfg)
			So(vr.Errors, ShouldContain, `portals[1].name "sarkari" is duplicated`)
			So(vr.Errors, ShouldContain, "portals[1].base_url must be an absolute http(s) URL")
			So(vr.Errors, ShouldContain, "portals[1].every must be >= 1m")
			So(len(vr.Errors), ShouldEqual, 4)
			So(config.Validate(cfg).Error(), ShouldContainSubstring, "config validation failed")
		})

		Convey("short intervals and no enabled portals only warn", func() {
			cfg.Portals[0].Every = 5 * time.Minute
			cfg.Portals[0].Enabled = false
			_, vr := config.NormalizeAndValidate(cfg)
			So(vr.OK(), ShouldBeTrue)
			So(vr.Warnings, ShouldHaveLength, 2)
		})

		Convey("empty keyword sets are errors", func() {
			cfg.Categories = []config.KeywordSet{{Name: "Postal", Any: []string{" ", ""}}}
			_, vr := config.NormalizeAndValidate(cfg)
			So(vr.Errors, ShouldContain, "categories[0].any must have at least 1 term")
		})
	})
}

func TestPersistence(t *testing.T) {
	Convey("Given a saved config", t, func() {
		path := filepath.Join(t.TempDir(), "config.yml")
		cfg, err := config.Load(write(t, "seed.yml", partial))
		So(err, ShouldBeNil)
		So(config.SaveAtomic(path, cfg), ShouldBeNil)

		Convey("toggling a portal persists and keeps a backup", func() {
			next, err := config.SetPortalEnabled(cfg, "sarkari", false)
			So(err, ShouldBeNil)
			So(cfg.Portals[0].Enabled, ShouldBeTrue)
			So(config.SaveAtomic(path, next), ShouldBeNil)

			back, err := config.Load(path)
			So(err, ShouldBeNil)
			So(back.Portals[0].Enabled, ShouldBeFalse)
			So(back.Portals[0].Every, ShouldEqual, 30*time.Minute)

			_, err = os.Stat(path + ".bak")
			So(err, ShouldBeNil)
		})

		Convey("unknown portals cannot be toggled", func() {
			_, err := config.SetPortalEnabled(cfg, "nope", true)
			So(err, ShouldWrap, config.ErrUnknownPortal)
		})

		Convey("invalid configs are never written", func() {
			bad := cfg
			bad.Harvest.MaxAttempts = 0
			So(config.SaveAtomic(path, bad), ShouldNotBeNil)
			back, err := config.Load(path)
			So(err, ShouldBeNil)
			So(back.Harvest.MaxAttempts, ShouldEqual, 4)
		})
	})
}

func TestBootstrapAndOverlay(t *testing.T) {
	Convey("A fresh data dir gets a config", t, func() {
		dir := t.TempDir()

		Convey("copied from the default path when it exists", func() {
			path, err := config.EnsureUserConfig(dir, write(t, "default.yml", partial))
			So(err, ShouldBeNil)
			So(path, ShouldEqual, filepath.Join(dir, "config.yml"))
			cfg, err := config.Load(path)
			So(err, ShouldBeNil)
			So(cfg.Portals, ShouldHaveLength, 1)

			Convey("and an existing one is left alone", func() {
				_, err := config.EnsureUserConfig(dir, filepath.Join(dir, "missing.yml"))
				So(err, ShouldBeNil)
				cfg, err := config.Load(path)
				So(err, ShouldBeNil)
				So(cfg.Portals, ShouldHaveLength, 1)
			})
		})

		Convey("built from defaults otherwise", func() {
			path, err := config.EnsureUserConfig(dir, filepath.Join(dir, "missing.yml"))
			So(err, ShouldBeNil)
			cfg, err := config.Load(path)
			So(err, ShouldBeNil)
			So(cfg.Portals, ShouldBeEmpty)
			So(cfg.Maintenance.Retention, ShouldEqual, 7*24*time.Hour)
		})
	})

	Convey("A portals overlay replaces the list", t, func() {
		cfg := config.Default()
		cfg.Portals = []domain.Portal{{Name: "old"}}

		So(config.OverlayPortals(&cfg, filepath.Join(t.TempDir(), "missing.yml")), ShouldBeNil)
		So(cfg.Portals[0].Name, ShouldEqual, "old")

		So(config.OverlayPortals(&cfg, write(t, "portals.yml", partial)), ShouldBeNil)
		So(cfg.Portals[0].Name, ShouldEqual, "sarkari")

		So(config.OverlayPortals(&cfg, write(t, "broken.yml", "portals: [")), ShouldNotBeNil)
	})
}
