package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"jobscout-engine/internal/clock"
	"jobscout-engine/internal/config"
	"jobscout-engine/internal/dedupe"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/logger"
	"jobscout-engine/internal/metrics"
	"jobscout-engine/internal/poll"
	"jobscout-engine/internal/rank"
	"jobscout-engine/internal/scheduler"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/scrape/util"
	"jobscout-engine/internal/store"
)

// app is the one-per-process object graph shared by every command.
type app struct {
	cfg     config.Config
	cfgPath string
	log     *zap.Logger

	db       *store.DB
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	hub      *events.Hub
	engine   *rank.Engine
	runner   *poll.Runner
	sched    *scheduler.Scheduler
}

func loadConfig() (config.Config, string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return config.Config{}, "", err
	}

	path := cfgFile
	if path == "" {
		var err error
		path, err = config.EnsureUserConfig(dataDir, filepath.Join("config", "config.yml"))
		if err != nil {
			return config.Config{}, "", fmt.Errorf("config bootstrap failed: %w", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, path, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if portalsFile != "" {
		if err := config.OverlayPortals(&cfg, portalsFile); err != nil {
			return cfg, path, fmt.Errorf("portals overlay (%s): %w", portalsFile, err)
		}
	}
	return cfg, path, nil
}

func newApp() (*app, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(jsonLogs || cfg.App.LogJSON, debug || cfg.App.Debug)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	cfg, vr := config.NormalizeAndValidate(cfg)
	for _, w := range vr.Warnings {
		log.Warn("config warning", zap.String("warning", w))
	}
	if err := vr.Err(); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "jobscout.db")
	db, err := store.OpenAndMigrate(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", dbPath, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	c := clock.Real{}
	hub := events.NewHub()
	engine := rank.New(db, cfg, c, log, m)
	scraper := scrape.New(scrape.OptionsFromConfig(cfg), scrape.Deps{
		Budget: util.NewDomainBudget(c),
		Pacer:  util.NewHostLimiter(cfg.Harvest.PacePerSecond, 1),
		Detector: dedupe.New(
			dedupe.WithThreshold(cfg.Dedupe.FuzzyThreshold),
			dedupe.WithTitlePrefix(cfg.Dedupe.TitlePrefix),
		),
		Lookup:  db,
		Clock:   c,
		Log:     log,
		Metrics: m,
	})
	runner := poll.NewRunner(cfg, poll.Deps{
		DB:      db,
		Scraper: scraper,
		Engine:  engine,
		Hub:     hub,
		Clock:   c,
		Log:     log,
		Metrics: m,
	})

	log.Debug("engine assembled",
		zap.String("config", path),
		zap.String("db", dbPath),
		zap.Int("portals", len(cfg.Portals)),
	)
	return &app{
		cfg:      cfg,
		cfgPath:  path,
		log:      log,
		db:       db,
		registry: reg,
		metrics:  m,
		hub:      hub,
		engine:   engine,
		runner:   runner,
		sched:    scheduler.New(c, log, m),
	}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
	_ = a.log.Sync()
}
