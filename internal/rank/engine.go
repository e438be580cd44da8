// Package rank scores how well a posting fits a candidate and learns from
// the outcomes candidates report back.
package rank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobscout-engine/internal/classify"
	"jobscout-engine/internal/clock"
	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/logger"
	"jobscout-engine/internal/metrics"
	"jobscout-engine/internal/scrape/util"
)

const (
	ruleWeight      = 0.4
	heuristicWeight = 0.4
	logWeight       = 0.2
	learnedDamping  = 0.1

	historyWindow   = 10
	historyMaxBonus = 20
	historyPenalty  = -5
)

var ErrNoPendingMatch = errors.New("no unreported match for posting and candidate")

// Store is the persistence the engine reads and appends to.
type Store interface {
	GetPosting(ctx context.Context, id string) (domain.Posting, error)
	AppendMatchLog(ctx context.Context, e domain.MatchLogEntry) error
	RecentOutcomes(ctx context.Context, education, category string, limit int) ([]domain.Outcome, error)
	SetOutcome(ctx context.Context, postingID, candidateID string, o domain.Outcome) (bool, error)
	AggregateOutcomes(ctx context.Context, now time.Time) ([]domain.LearnedPattern, error)
	UpsertPattern(ctx context.Context, p domain.LearnedPattern) error
	GetPattern(ctx context.Context, education, region string) (domain.LearnedPattern, bool, error)
	HeuristicWeights(ctx context.Context, key string) (domain.HeuristicWeights, bool, error)
}

type Match struct {
	MatchID     string           `json:"matchId"`
	PostingID   string           `json:"postingId"`
	CandidateID string           `json:"candidateId"`
	Score       float64          `json:"score"`
	Confidence  float64          `json:"confidence"`
	Breakdown   domain.Breakdown `json:"breakdown"`
	Explanation string           `json:"explanation"`
}

type Engine struct {
	store      Store
	defaults   domain.HeuristicWeights
	titleRules []config.Rule
	clock      clock.Clock
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func New(st Store, cfg config.Config, c clock.Clock, log *zap.Logger, m *metrics.Metrics) *Engine {
	if c == nil {
		c = clock.Real{}
	}
	defaults := cfg.Scoring.Defaults
	if defaults == (domain.HeuristicWeights{}) {
		defaults = config.Default().Scoring.Defaults
	}
	return &Engine{
		store:      st,
		defaults:   defaults,
		titleRules: cfg.Scoring.TitleRules,
		clock:      c,
		log:        logger.OrNop(log).Named("rank"),
		metrics:    m,
	}
}

// ScoreByID loads the posting and scores it.
func (e *Engine) ScoreByID(ctx context.Context, postingID string, prof domain.Profile, useLearning bool) (Match, error) {
	p, err := e.store.GetPosting(ctx, postingID)
	if err != nil {
		return Match{}, err
	}
	return e.Score(ctx, p, prof, useLearning)
}

// Score blends the rule, heuristic, history and learned signals into a 0-100
// score and logs the decision. Lookup failures degrade to neutral signals; only
// a failed log append is returned, alongside the computed match.
func (e *Engine) Score(ctx context.Context, p domain.Posting, prof domain.Profile, useLearning bool) (Match, error) {
	edu := classify.EducationOf(prof.Education)
	region := regionKey(prof.Region)

	var b domain.Breakdown
	var reasons []string

	var why []string
	b.Education, b.Age, b.Region, b.Rule, why = ruleScore(p, prof)
	reasons = append(reasons, why...)

	b.Heuristic, why = e.heuristicScore(e.weightsFor(ctx, WeightKey(edu, prof.Age)), p, prof, edu)
	reasons = append(reasons, why...)

	var hist string
	b.LogAdjustment, hist = e.historyAdjustment(ctx, edu, p.Category)
	if hist != "" {
		reasons = append(reasons, hist)
	}

	b.Base = ruleWeight*b.Rule + heuristicWeight*b.Heuristic + logWeight*b.LogAdjustment

	if useLearning {
		pat, ok, err := e.store.GetPattern(ctx, edu, region)
		if err != nil {
			e.log.Warn("pattern lookup failed", zap.String("education", edu), zap.String("region", region), zap.Error(err))
		} else if ok {
			b.MLAdjustment = (pat.AvgSuccessScore - b.Base) * pat.Confidence * learnedDamping
			reasons = append(reasons, fmt.Sprintf("similar candidates adjust %+.1f", b.MLAdjustment))
		}
	}

	final := clamp(b.Base + b.MLAdjustment)
	conf := 0.4*(1-math.Abs(b.Rule-b.Heuristic)/100) + 0.6*final/100

	m := Match{
		MatchID:     uuid.NewString(),
		PostingID:   p.ID,
		CandidateID: prof.CandidateID,
		Score:       round2(final),
		Confidence:  round2(math.Max(0, math.Min(1, conf))),
		Breakdown:   b,
		Explanation: strings.Join(reasons, "; "),
	}
	e.metrics.MatchScored(m.Score)

	err := e.store.AppendMatchLog(ctx, domain.MatchLogEntry{
		ID:                 m.MatchID,
		CreatedAt:          e.clock.Now().UTC(),
		CandidateID:        prof.CandidateID,
		CandidateEducation: edu,
		CandidateAge:       prof.Age,
		CandidateRegion:    region,
		PostingID:          p.ID,
		PostingCategory:    p.Category,
		PostingRegion:      p.Location,
		Score:              m.Score,
		Breakdown:          b,
	})
	if err != nil {
		e.log.Warn("match log append failed", zap.String("posting", p.ID), zap.Error(err))
		return m, fmt.Errorf("log match: %w", err)
	}
	return m, nil
}

func (e *Engine) historyAdjustment(ctx context.Context, edu, category string) (float64, string) {
	outs, err := e.store.RecentOutcomes(ctx, edu, category, historyWindow)
	if err != nil {
		e.log.Warn("history lookup failed", zap.String("education", edu), zap.String("category", category), zap.Error(err))
		return 0, ""
	}
	if len(outs) == 0 {
		return 0, ""
	}
	wins := 0
	for _, o := range outs {
		if o.Success() {
			wins++
		}
	}
	ratio := float64(wins) / float64(len(outs))
	why := fmt.Sprintf("%d of %d similar matches acted on", wins, len(outs))
	if ratio > 0.5 {
		return ratio * historyMaxBonus, why
	}
	return historyPenalty, why
}

// ReportOutcome records what the candidate did with the most recent unreported
// match for the posting, then refreshes learned patterns. A refresh failure is
// logged and leaves the previous patterns in place.
func (e *Engine) ReportOutcome(ctx context.Context, postingID, candidateID string, o domain.Outcome) error {
	if _, err := domain.ParseOutcome(string(o)); err != nil {
		return fmt.Errorf("%q: %w", o, err)
	}
	ok, err := e.store.SetOutcome(ctx, postingID, candidateID, o)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoPendingMatch
	}
	e.metrics.Outcome(string(o))

	if _, err := e.RefreshPatterns(ctx); err != nil {
		e.metrics.AggregationFailed()
		e.log.Warn("pattern refresh failed, keeping stale patterns", zap.Error(err))
	}
	return nil
}

// RefreshPatterns recomputes every learned pattern from outcome-bearing logs.
func (e *Engine) RefreshPatterns(ctx context.Context) (int, error) {
	pats, err := e.store.AggregateOutcomes(ctx, e.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	for _, p := range pats {
		if err := e.store.UpsertPattern(ctx, p); err != nil {
			return 0, err
		}
	}
	e.log.Debug("patterns refreshed", zap.Int("patterns", len(pats)))
	return len(pats), nil
}

func regionKey(region string) string {
	return strings.ToLower(util.CleanText(region))
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
