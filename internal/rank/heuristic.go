package rank

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"jobscout-engine/internal/classify"
	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
)

// WeightKey is the profile-class key of the heuristic weight table.
func WeightKey(education string, age int) string {
	return education + "|" + ageBucket(age)
}

func ageBucket(age int) string {
	switch {
	case age <= 0:
		return "unknown"
	case age < 21:
		return "under-21"
	case age <= 25:
		return "21-25"
	case age <= 30:
		return "26-30"
	case age <= 35:
		return "31-35"
	default:
		return "over-35"
	}
}

func (e *Engine) weightsFor(ctx context.Context, key string) domain.HeuristicWeights {
	w, ok, err := e.store.HeuristicWeights(ctx, key)
	if err != nil {
		e.log.Warn("weight lookup failed, using defaults", zap.String("key", key), zap.Error(err))
		return e.defaults
	}
	if !ok {
		return e.defaults
	}
	return w
}

func (e *Engine) heuristicScore(w domain.HeuristicWeights, p domain.Posting, prof domain.Profile, edu string) (float64, []string) {
	score := w.Base
	var reasons []string

	for _, c := range prof.PreferredCategories {
		if strings.EqualFold(strings.TrimSpace(c), p.Category) {
			score += w.CategoryBonus
			reasons = append(reasons, "preferred category "+p.Category)
			break
		}
	}

	if tags, bonus := keywordHits(p.Title, prof.Keywords, e.titleRules, w.KeywordBonus); len(tags) > 0 {
		score += min(bonus, w.KeywordCap)
		reasons = append(reasons, fmt.Sprintf("title mentions %s", strings.Join(tags, ", ")))
	}

	if eligibleText(p.Description, edu, prof.Region) {
		score += w.EligibilityBonus
		reasons = append(reasons, "description names your eligibility")
	}

	return clamp(score), reasons
}

// keywordHits returns one tag per profile keyword or title rule found in
// title, and the summed bonus. A profile keyword is worth perKeyword; a title
// rule is worth its own weight, or perKeyword when the weight is unset.
func keywordHits(title string, keywords []string, rules []config.Rule, perKeyword float64) ([]string, float64) {
	norm := classify.Normalize(title)

	var (
		tags  []string
		bonus float64
		seen  = map[string]bool{}
	)
	hit := func(tag string, points float64) {
		if seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
		bonus += points
	}
	for _, k := range keywords {
		if classify.ContainsWord(norm, k) {
			hit(strings.ToLower(strings.TrimSpace(k)), perKeyword)
		}
	}
	for _, r := range rules {
		points := perKeyword
		if r.Weight > 0 {
			points = float64(r.Weight)
		}
		for _, needle := range r.Any {
			if classify.ContainsWord(norm, needle) {
				hit(r.Tag, points)
				break
			}
		}
	}
	return tags, bonus
}

func eligibleText(description, edu, region string) bool {
	norm := classify.Normalize(description)
	if region = strings.TrimSpace(region); region != "" && classify.ContainsWord(norm, region) {
		return true
	}
	for _, set := range classify.Education {
		if set.Name != edu {
			continue
		}
		for _, alias := range set.Any {
			if classify.ContainsWord(norm, alias) {
				return true
			}
		}
	}
	return false
}
