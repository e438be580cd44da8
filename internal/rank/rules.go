package rank

import (
	"fmt"
	"strings"

	"jobscout-engine/internal/classify"
	"jobscout-engine/internal/domain"
)

const (
	educationPoints  = 30
	agePoints        = 25
	ageNearPoints    = 12
	ageGraceYears    = 2
	regionPoints     = 25
	allRegionsPoints = 20
	ruleMax          = educationPoints + agePoints + regionPoints
)

var allRegionMarkers = []string{"all india", "all states", "pan india", "nationwide", "all regions"}

// ruleScore returns the three rule components and their sum scaled to 0-100.
func ruleScore(p domain.Posting, prof domain.Profile) (edu, age, region, total float64, reasons []string) {
	edu, why := educationRule(p.Education, prof.Education)
	reasons = append(reasons, why)
	age, why = ageRule(p.MinAge, p.MaxAge, prof.Age)
	reasons = append(reasons, why)
	region, why = regionRule(p.Location, prof.Region)
	reasons = append(reasons, why)

	total = (edu + age + region) / ruleMax * 100
	return edu, age, region, total, reasons
}

func educationRule(required, candidate string) (float64, string) {
	need := classify.Level(required)
	if need == 0 {
		return educationPoints, "no education requirement"
	}
	have := classify.Level(classify.EducationOf(candidate))
	if have >= need {
		return educationPoints, fmt.Sprintf("education meets %s", required)
	}
	return 0, fmt.Sprintf("education below %s", required)
}

// ageRule treats a zero bound as open.
func ageRule(minAge, maxAge, age int) (float64, string) {
	if minAge == 0 && maxAge == 0 {
		return agePoints, "no age limit"
	}
	if age <= 0 {
		return 0, "candidate age unknown"
	}
	band := fmt.Sprintf("%d-%d", minAge, maxAge)
	if (minAge == 0 || age >= minAge) && (maxAge == 0 || age <= maxAge) {
		return agePoints, "age within " + band
	}
	if (minAge > 0 && age < minAge && minAge-age <= ageGraceYears) ||
		(maxAge > 0 && age > maxAge && age-maxAge <= ageGraceYears) {
		return ageNearPoints, "age close to " + band
	}
	return 0, "age outside " + band
}

func regionRule(postingRegion, candidateRegion string) (float64, string) {
	if isAllRegions(postingRegion) {
		return allRegionsPoints, "open to all regions"
	}
	cand := strings.TrimSpace(candidateRegion)
	if cand == "" {
		return 0, "candidate region unknown"
	}
	if classify.ContainsWord(classify.Normalize(postingRegion), cand) ||
		classify.ContainsWord(classify.Normalize(cand), postingRegion) {
		return regionPoints, "region matches " + cand
	}
	return 0, "region differs"
}

func isAllRegions(loc string) bool {
	norm := classify.Normalize(loc)
	if strings.TrimSpace(norm) == "" {
		return true
	}
	for _, m := range allRegionMarkers {
		if classify.ContainsWord(norm, m) {
			return true
		}
	}
	return false
}
