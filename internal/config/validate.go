package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return errors.New("config validation failed:\n- " + strings.Join(v.Errors, "\n- "))
}

// Validate reports only the hard errors in cfg.
func Validate(cfg Config) error {
	_, v := NormalizeAndValidate(cfg)
	return v.Err()
}

// NormalizeAndValidate returns a normalized copy of cfg plus everything wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Portals = append(out.Portals[:0:0], cfg.Portals...)
	for i := range out.Portals {
		p := &out.Portals[i]
		p.Name = strings.TrimSpace(p.Name)
		p.BaseURL = strings.TrimSpace(p.BaseURL)
		p.Selectors.Container = strings.TrimSpace(p.Selectors.Container)
	}
	out.Categories = normalizeSets(out.Categories, trimList)
	out.Education = normalizeSets(out.Education, trimList)

	// ---- Validation rules ----

	if out.Harvest.MaxAttempts < 1 {
		res.addErr("harvest.max_attempts must be >= 1")
	} else if out.Harvest.MaxAttempts > 5 {
		res.addWarn("harvest.max_attempts is %d; each failed portal will hold a run for a long time.", out.Harvest.MaxAttempts)
	}
	if out.Harvest.DefaultRateLimit < 1 {
		res.addErr("harvest.default_rate_limit must be >= 1")
	}
	if out.Dedupe.FuzzyThreshold <= 0 || out.Dedupe.FuzzyThreshold > 1 {
		res.addErr("dedupe.fuzzy_threshold must be in (0,1]")
	}
	if out.Dedupe.TitlePrefix < 1 {
		res.addErr("dedupe.title_prefix must be >= 1")
	}
	if out.Maintenance.Retention <= 0 {
		res.addErr("maintenance.retention must be > 0")
	}

	seen := map[string]bool{}
	enabled := 0
	for i, p := range out.Portals {
		if p.Name == "" {
			res.addErr("portals[%d].name is required", i)
		} else if seen[strings.ToLower(p.Name)] {
			res.addErr("portals[%d].name %q is duplicated", i, p.Name)
		}
		seen[strings.ToLower(p.Name)] = true

		u, err := url.Parse(p.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			res.addErr("portals[%d].base_url must be an absolute http(s) URL", i)
		}
		if p.Selectors.Container == "" {
			res.addErr("portals[%d].selectors.container is required", i)
		}
		for field, sel := range p.Selectors.ByField() {
			if sel == "" {
				continue
			}
			if _, err := cascadia.Compile(sel); err != nil {
				res.addErr("portals[%d].selectors.%s %q: %v", i, field, sel, err)
			}
		}
		if p.Every < time.Minute {
			res.addErr("portals[%d].every must be >= 1m", i)
		} else if p.Every < 10*time.Minute {
			res.addWarn("portals[%d].every is very low (%s) and will burn the hourly budget.", i, p.Every)
		}
		if p.RateLimitPerHour < 0 {
			res.addErr("portals[%d].rate_limit_per_hour must be >= 0", i)
		}
		if p.Enabled {
			enabled++
		}
	}
	if len(out.Portals) > 0 && enabled == 0 {
		res.addWarn("no portals are enabled; only maintenance will run.")
	}

	checkSets := func(name string, sets []KeywordSet) {
		for i, s := range sets {
			if s.Name == "" {
				res.addErr("%s[%d].name is required", name, i)
			}
			if len(s.Any) == 0 {
				res.addErr("%s[%d].any must have at least 1 term", name, i)
			}
		}
	}
	checkSets("categories", out.Categories)
	checkSets("education", out.Education)

	for i, r := range out.Scoring.TitleRules {
		if r.Tag == "" {
			res.addErr("scoring.title_rules[%d].tag is required", i)
		}
		if r.Weight < 0 {
			res.addErr("scoring.title_rules[%d].weight cannot be negative", i)
		}
		if len(r.Any) == 0 {
			res.addErr("scoring.title_rules[%d].any must have at least 1 term", i)
		}
		for j, term := range r.Any {
			if term == "" {
				res.addErr("scoring.title_rules[%d].any[%d] cannot be empty", i, j)
			}
		}
	}

	return out, res
}

func normalizeSets(sets []KeywordSet, trim func([]string) []string) []KeywordSet {
	if len(sets) == 0 {
		return sets
	}
	out := make([]KeywordSet, 0, len(sets))
	for _, s := range sets {
		out = append(out, KeywordSet{Name: strings.TrimSpace(s.Name), Any: trim(s.Any)})
	}
	return out
}

// SetPortalEnabled returns a copy of cfg with the named portal toggled.
func SetPortalEnabled(cfg Config, name string, enabled bool) (Config, error) {
	out := cfg
	out.Portals = append(cfg.Portals[:0:0], cfg.Portals...)
	for i := range out.Portals {
		if out.Portals[i].Name == name {
			out.Portals[i].Enabled = enabled
			return out, nil
		}
	}
	return cfg, fmt.Errorf("portal %q: %w", name, ErrUnknownPortal)
}

var ErrUnknownPortal = errors.New("unknown portal")

// SaveAtomic validates cfg and writes it to path, keeping the previous file
// as path.bak.
func SaveAtomic(path string, cfg Config) error {
	if _, vr := NormalizeAndValidate(cfg); !vr.OK() {
		return vr.Err()
	}
	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return writeAtomic(path, b, true)
}
