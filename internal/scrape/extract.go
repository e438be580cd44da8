package scrape

import (
	"regexp"
	"strconv"
)

var (
	ageRangeRe = regexp.MustCompile(`(?i)\bage[^0-9]{0,25}(\d{2})\s*(?:-|–|to)\s*(\d{2})`)
	yearsRe    = regexp.MustCompile(`(?i)\b(\d{2})\s*(?:-|–|to)\s*(\d{2})\s*(?:years|yrs)\b`)
	maxAgeRe   = regexp.MustCompile(`(?i)\b(?:max(?:imum)?|upper)\s+age(?:\s+limit)?[^0-9]{0,10}(\d{2})\b`)
	minAgeRe   = regexp.MustCompile(`(?i)\b(?:min(?:imum)?|lower)\s+age(?:\s+limit)?[^0-9]{0,10}(\d{2})\b`)
)

// ExtractAgeRange pulls an eligibility age band out of free text. Zero means
// the bound was not stated.
func ExtractAgeRange(text string) (minAge, maxAge int) {
	for _, re := range []*regexp.Regexp{ageRangeRe, yearsRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			lo, _ := strconv.Atoi(m[1])
			hi, _ := strconv.Atoi(m[2])
			if lo > 0 && hi >= lo && hi < 100 {
				return lo, hi
			}
		}
	}
	if m := minAgeRe.FindStringSubmatch(text); m != nil {
		minAge, _ = strconv.Atoi(m[1])
	}
	if m := maxAgeRe.FindStringSubmatch(text); m != nil {
		maxAge, _ = strconv.Atoi(m[1])
	}
	if maxAge > 0 && minAge > maxAge {
		minAge = 0
	}
	return minAge, maxAge
}
