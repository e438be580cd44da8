package scrape

import (
	"bytes"
	"context"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobscout-engine/internal/classify"
	"jobscout-engine/internal/clock"
	"jobscout-engine/internal/config"
	"jobscout-engine/internal/dedupe"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/logger"
	"jobscout-engine/internal/metrics"
	"jobscout-engine/internal/scrape/util"
)

const minTitleLen = 3

type Options struct {
	DefaultRateLimit int
	MaxAttempts      int
	BackoffBase      time.Duration
	FetchTimeout     time.Duration
	MaxItems         int
	MaxDescription   int
	UserAgent        string
	Categories       classify.Table
	Education        classify.Table
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		DefaultRateLimit: cfg.Harvest.DefaultRateLimit,
		MaxAttempts:      cfg.Harvest.MaxAttempts,
		BackoffBase:      cfg.Harvest.BackoffBase,
		FetchTimeout:     cfg.Harvest.FetchTimeout,
		MaxItems:         cfg.Harvest.MaxItems,
		MaxDescription:   cfg.Harvest.MaxDescription,
		UserAgent:        cfg.Harvest.UserAgent,
		Categories:       classify.FromConfig(cfg.Categories, classify.Categories),
		Education:        classify.FromConfig(cfg.Education, classify.Education),
	}
}

// Deps are the collaborators a Scraper shares with the rest of the process.
// Budget and Detector are required; the rest fall back to defaults.
type Deps struct {
	HTTP     *http.Client
	Budget   *util.DomainBudget
	Pacer    *util.HostLimiter
	Detector *dedupe.Detector
	Lookup   dedupe.Lookup
	Clock    clock.Clock
	Log      *zap.Logger
	Metrics  *metrics.Metrics
}

type Scraper struct {
	opts     Options
	hc       *http.Client
	budget   *util.DomainBudget
	pacer    *util.HostLimiter
	detector *dedupe.Detector
	lookup   dedupe.Lookup
	clock    clock.Clock
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func New(opts Options, d Deps) *Scraper {
	def := OptionsFromConfig(config.Default())
	if opts.DefaultRateLimit <= 0 {
		opts.DefaultRateLimit = def.DefaultRateLimit
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = def.BackoffBase
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = def.FetchTimeout
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = def.MaxItems
	}
	if opts.MaxDescription <= 0 {
		opts.MaxDescription = def.MaxDescription
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if len(opts.Categories) == 0 {
		opts.Categories = classify.Categories
	}
	if len(opts.Education) == 0 {
		opts.Education = classify.Education
	}

	s := &Scraper{
		opts:     opts,
		hc:       d.HTTP,
		budget:   d.Budget,
		pacer:    d.Pacer,
		detector: d.Detector,
		lookup:   d.Lookup,
		clock:    d.Clock,
		log:      logger.OrNop(d.Log).Named("scrape"),
		metrics:  d.Metrics,
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.hc == nil {
		s.hc = &http.Client{Timeout: opts.FetchTimeout}
	}
	if s.budget == nil {
		s.budget = util.NewDomainBudget(s.clock)
	}
	if s.detector == nil {
		s.detector = dedupe.New()
	}
	return s
}

type Result struct {
	Portal      string
	Postings    []domain.Posting
	RateLimited bool
	Fetched     bool
	Attempts    int
	Found       int // containers seen on the page
	Skipped     int // containers rejected as malformed
	Duplicates  int
}

// Budget reports how many fetches p's host has left in the current window,
// and the hourly limit that applies to p.
func (s *Scraper) Budget(p domain.Portal) (remaining, limit int) {
	limit = s.limitFor(p)
	return s.budget.Remaining(util.HostOf(p.BaseURL), limit), limit
}

func (s *Scraper) limitFor(p domain.Portal) int {
	if p.RateLimitPerHour > 0 {
		return p.RateLimitPerHour
	}
	return s.opts.DefaultRateLimit
}

// Harvest turns one portal page into draft postings. It never returns an
// error: rate limiting, transport failure and unparseable pages all yield an
// empty result so one portal cannot take down a run.
func (s *Scraper) Harvest(ctx context.Context, p domain.Portal) Result {
	res := Result{Portal: p.Name}
	log := s.log.With(zap.String("portal", p.Name))

	host, limit := util.HostOf(p.BaseURL), s.limitFor(p)
	if !s.budget.Allow(host, limit) {
		log.Info("hourly budget spent, skipping cycle", zap.String("domain", host), zap.Int("limit", limit))
		s.metrics.RateLimited(host)
		res.RateLimited = true
		return res
	}

	body, attempts, err := s.fetch(ctx, p)
	res.Attempts = attempts
	if err != nil {
		log.Warn("fetch failed, returning empty harvest", zap.Int("attempts", attempts), zap.Error(err))
		return res
	}
	res.Fetched = true

	items, err := parsePage(bytes.NewReader(body), p, s.opts.MaxItems)
	if err != nil {
		log.Warn("page did not parse", zap.Error(err))
		return res
	}
	res.Found = len(items)

	now := s.clock.Now().UTC()
	batch := s.detector.NewBatch()
	for _, it := range items {
		posting, ok := s.build(it, p, now)
		if !ok {
			res.Skipped++
			log.Debug("skipped item", zap.String("title", logger.TruncateForLog(it.Title, 60)))
			continue
		}
		if batch.Contains(posting) {
			res.Duplicates++
			s.metrics.Duplicate(p.Name, "batch")
			continue
		}

		if s.lookup != nil {
			dup, err := s.detector.IsDuplicate(ctx, posting, s.lookup)
			if err != nil {
				// the store's unique index still catches exact repeats on insert
				log.Warn("duplicate check failed", zap.String("title", posting.Title), zap.Error(err))
			} else if dup {
				res.Duplicates++
				s.metrics.Duplicate(p.Name, "store")
				continue
			}
		}
		batch.Add(posting)
		res.Postings = append(res.Postings, posting)
	}

	s.metrics.Harvested(p.Name, len(res.Postings))
	log.Info("harvested",
		zap.Int("found", res.Found),
		zap.Int("new", len(res.Postings)),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("skipped", res.Skipped),
	)
	return res
}

func (s *Scraper) build(it item, p domain.Portal, now time.Time) (domain.Posting, bool) {
	title := util.CleanText(it.Title)
	if utf8.RuneCountInString(title) < minTitleLen {
		return domain.Posting{}, false
	}

	org := util.CleanText(it.Organization)
	if org == "" {
		org = p.Name
	}
	desc := util.TrimRunes(util.CleanText(it.Description), s.opts.MaxDescription)
	text := title + " " + desc
	minAge, maxAge := ExtractAgeRange(text)

	link := it.Link
	if link == "" {
		link = p.BaseURL
	}

	return domain.Posting{
		ID:           uuid.NewString(),
		Title:        title,
		Organization: org,
		Location:     util.NormalizeLocation(it.Location),
		Description:  desc,
		Salary:       util.CleanText(it.Salary),
		Category:     s.opts.Categories.Match(text, classify.DefaultCategory),
		Education:    s.opts.Education.Match(text, classify.AnyEducation),
		MinAge:       minAge,
		MaxAge:       maxAge,
		Fingerprint:  dedupe.Fingerprint(title, desc, org),
		SourcePortal: p.Name,
		SourceURL:    link,
		DiscoveredAt: now,
		Status:       domain.StatusDraft,
	}, true
}
