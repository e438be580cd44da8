// Package classify holds the ordered keyword tables that tag postings with a
// category and an education requirement.
package classify

import (
	"strings"
	"unicode"

	"jobscout-engine/internal/config"
)

const (
	DefaultCategory = "General"
	AnyEducation    = "Any"
	EduTenth        = "10th"
	EduTwelfth      = "12th"
	EduGraduate     = "Graduate"
	EduPostGraduate = "PostGraduate"
)

// Table is evaluated top to bottom; the first row with a keyword hit wins.
type Table []config.KeywordSet

var Categories = Table{
	{Name: "Railway", Any: []string{"railway", "railways", "rrb", "rail", "loco pilot", "metro rail"}},
	{Name: "Banking", Any: []string{"bank", "banking", "ibps", "sbi", "rbi", "nabard", "probationary officer"}},
	{Name: "Defence", Any: []string{"army", "navy", "air force", "defence", "agniveer", "coast guard"}},
	{Name: "Police", Any: []string{"police", "constable", "cisf", "crpf", "bsf", "itbp", "sub inspector"}},
	{Name: "Teaching", Any: []string{"teacher", "tgt", "pgt", "prt", "lecturer", "professor", "ctet"}},
	{Name: "SSC", Any: []string{"ssc", "staff selection"}},
	{Name: "UPSC", Any: []string{"upsc", "civil services", "union public service"}},
	{Name: "State PSC", Any: []string{"psc", "public service commission"}},
	{Name: "Healthcare", Any: []string{"nurse", "nursing", "medical officer", "doctor", "aiims", "pharmacist", "health"}},
	{Name: "Engineering", Any: []string{"engineer", "junior engineer", "technical assistant", "je"}},
}

// Education lists higher levels first so "post graduate" is not read as "graduate".
var Education = Table{
	{Name: EduPostGraduate, Any: []string{"post graduate", "postgraduate", "post graduation", "pg degree", "master degree", "masters degree", "master s degree", "m.a", "m.sc", "m.com", "mba", "m.tech", "mca", "phd"}},
	{Name: EduGraduate, Any: []string{"graduate", "graduation", "bachelor", "bachelors", "degree", "b.a", "b.sc", "b.com", "b.tech", "b.e", "bca", "bba"}},
	{Name: EduTwelfth, Any: []string{"12th", "intermediate", "hsc", "higher secondary", "10+2", "senior secondary"}},
	{Name: EduTenth, Any: []string{"10th", "matric", "matriculation", "high school", "secondary school"}},
}

var levels = map[string]int{
	EduTenth:        1,
	EduTwelfth:      2,
	EduGraduate:     3,
	EduPostGraduate: 4,
}

// FromConfig returns sets when non-empty, otherwise fallback.
func FromConfig(sets []config.KeywordSet, fallback Table) Table {
	if len(sets) == 0 {
		return fallback
	}
	return Table(sets)
}

// Match returns the name of the first row with a keyword in text, or def.
func (t Table) Match(text, def string) string {
	norm := Normalize(text)
	for _, set := range t {
		for _, kw := range set.Any {
			if ContainsWord(norm, kw) {
				return set.Name
			}
		}
	}
	return def
}

// Level ranks a canonical education name; 0 means unknown or "Any".
func Level(name string) int {
	return levels[name]
}

// EducationOf canonicalizes free text ("B.Tech", "Intermediate") to a level name.
func EducationOf(text string) string {
	if n := strings.TrimSpace(text); n != "" {
		for canon := range levels {
			if strings.EqualFold(n, canon) {
				return canon
			}
		}
	}
	return Education.Match(text, AnyEducation)
}

// Normalize lowercases s and turns every run of non-alphanumerics into a
// single space, padded on both sides for whole-word lookups.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// ContainsWord reports whether keyword occurs in norm on word boundaries.
// norm must come from Normalize.
func ContainsWord(norm, keyword string) bool {
	kw := strings.TrimSpace(Normalize(keyword))
	if kw == "" {
		return false
	}
	return strings.Contains(norm, " "+kw+" ")
}
