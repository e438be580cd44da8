// engine/internal/config/config.go
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"jobscout-engine/internal/domain"
)

type Rule struct {
	Tag    string   `yaml:"tag"`
	Weight int      `yaml:"weight"`
	Any    []string `yaml:"any"`
}

// KeywordSet is one row of an ordered classification table. Order matters:
// the first set with a matching keyword wins.
type KeywordSet struct {
	Name string   `yaml:"name"`
	Any  []string `yaml:"any"`
}

type Config struct {
	App struct {
		Listen  string `yaml:"listen"`
		DataDir string `yaml:"data_dir"`
		LogJSON bool   `yaml:"log_json"`
		Debug   bool   `yaml:"debug"`
	} `yaml:"app"`

	Harvest struct {
		DefaultRateLimit int           `yaml:"default_rate_limit"`
		MaxAttempts      int           `yaml:"max_attempts"`
		BackoffBase      time.Duration `yaml:"backoff_base"`
		FetchTimeout     time.Duration `yaml:"fetch_timeout"`
		MaxItems         int           `yaml:"max_items"`
		MaxDescription   int           `yaml:"max_description"`
		UserAgent        string        `yaml:"user_agent"`
		PacePerSecond    float64       `yaml:"pace_per_second"`
	} `yaml:"harvest"`

	Dedupe struct {
		FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
		TitlePrefix    int     `yaml:"title_prefix"`
	} `yaml:"dedupe"`

	Maintenance struct {
		Retention   time.Duration `yaml:"retention"`
		ExpireAfter time.Duration `yaml:"expire_after"`
		Every       time.Duration `yaml:"every"`
		LearnEvery  time.Duration `yaml:"learn_every"`
	} `yaml:"maintenance"`

	Portals []domain.Portal `yaml:"portals"`

	Categories []KeywordSet `yaml:"categories,omitempty"`
	Education  []KeywordSet `yaml:"education,omitempty"`

	Scoring struct {
		UseLearning bool                    `yaml:"use_learning"`
		Defaults    domain.HeuristicWeights `yaml:"defaults"`
		TitleRules  []Rule                  `yaml:"title_rules"`
	} `yaml:"scoring"`
}

func Default() Config {
	var cfg Config
	cfg.App.Listen = "127.0.0.1:38471"
	cfg.App.DataDir = "."

	cfg.Harvest.DefaultRateLimit = 10
	cfg.Harvest.MaxAttempts = 3
	cfg.Harvest.BackoffBase = time.Second
	cfg.Harvest.FetchTimeout = 30 * time.Second
	cfg.Harvest.MaxItems = 50
	cfg.Harvest.MaxDescription = 1000
	cfg.Harvest.UserAgent = "JobScout/1.0 (+local)"
	cfg.Harvest.PacePerSecond = 1

	cfg.Dedupe.FuzzyThreshold = 0.85
	cfg.Dedupe.TitlePrefix = 10

	cfg.Maintenance.Retention = 7 * 24 * time.Hour
	cfg.Maintenance.ExpireAfter = 30 * 24 * time.Hour
	cfg.Maintenance.Every = 24 * time.Hour
	cfg.Maintenance.LearnEvery = time.Hour

	cfg.Scoring.UseLearning = true
	cfg.Scoring.Defaults = domain.HeuristicWeights{
		Base:             50,
		CategoryBonus:    30,
		KeywordBonus:     10,
		KeywordCap:       20,
		EligibilityBonus: 10,
	}
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// applyDefaults fills zero values left behind by a partial YAML file.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.App.Listen == "" {
		cfg.App.Listen = def.App.Listen
	}
	if cfg.Harvest.DefaultRateLimit <= 0 {
		cfg.Harvest.DefaultRateLimit = def.Harvest.DefaultRateLimit
	}
	if cfg.Harvest.MaxAttempts <= 0 {
		cfg.Harvest.MaxAttempts = def.Harvest.MaxAttempts
	}
	if cfg.Harvest.BackoffBase <= 0 {
		cfg.Harvest.BackoffBase = def.Harvest.BackoffBase
	}
	if cfg.Harvest.FetchTimeout <= 0 {
		cfg.Harvest.FetchTimeout = def.Harvest.FetchTimeout
	}
	if cfg.Harvest.MaxItems <= 0 {
		cfg.Harvest.MaxItems = def.Harvest.MaxItems
	}
	if cfg.Harvest.MaxDescription <= 0 {
		cfg.Harvest.MaxDescription = def.Harvest.MaxDescription
	}
	if cfg.Harvest.UserAgent == "" {
		cfg.Harvest.UserAgent = def.Harvest.UserAgent
	}
	if cfg.Harvest.PacePerSecond <= 0 {
		cfg.Harvest.PacePerSecond = def.Harvest.PacePerSecond
	}
	if cfg.Dedupe.FuzzyThreshold <= 0 {
		cfg.Dedupe.FuzzyThreshold = def.Dedupe.FuzzyThreshold
	}
	if cfg.Dedupe.TitlePrefix <= 0 {
		cfg.Dedupe.TitlePrefix = def.Dedupe.TitlePrefix
	}
	if cfg.Maintenance.Retention <= 0 {
		cfg.Maintenance.Retention = def.Maintenance.Retention
	}
	if cfg.Maintenance.ExpireAfter <= 0 {
		cfg.Maintenance.ExpireAfter = def.Maintenance.ExpireAfter
	}
	if cfg.Maintenance.Every <= 0 {
		cfg.Maintenance.Every = def.Maintenance.Every
	}
	if cfg.Maintenance.LearnEvery <= 0 {
		cfg.Maintenance.LearnEvery = def.Maintenance.LearnEvery
	}
	if cfg.Scoring.Defaults == (domain.HeuristicWeights{}) {
		cfg.Scoring.Defaults = def.Scoring.Defaults
	}
}

// Portal looks up a portal by name.
func (c Config) Portal(name string) (domain.Portal, bool) {
	for _, p := range c.Portals {
		if p.Name == name {
			return p, true
		}
	}
	return domain.Portal{}, false
}

// RateLimitFor returns the hourly request budget for a portal.
func (c Config) RateLimitFor(p domain.Portal) int {
	if p.RateLimitPerHour > 0 {
		return p.RateLimitPerHour
	}
	return c.Harvest.DefaultRateLimit
}
