package domain

import (
	"errors"
	"time"
)

type Outcome string

const (
	OutcomeUnset   Outcome = ""
	OutcomeApplied Outcome = "applied"
	OutcomeIgnored Outcome = "ignored"
	OutcomeSaved   Outcome = "saved"
)

var ErrInvalidOutcome = errors.New("invalid outcome")

func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeApplied, OutcomeIgnored, OutcomeSaved:
		return o, nil
	}
	return OutcomeUnset, ErrInvalidOutcome
}

// Success reports whether the outcome counts as positive feedback.
func (o Outcome) Success() bool {
	return o == OutcomeApplied || o == OutcomeSaved
}

// Profile is the candidate snapshot a posting is scored against.
type Profile struct {
	CandidateID         string   `json:"candidateId"`
	Education           string   `json:"education"`
	Age                 int      `json:"age"`
	Region              string   `json:"region"`
	PreferredCategories []string `json:"preferredCategories,omitempty"`
	Keywords            []string `json:"keywords,omitempty"`
}

type Breakdown struct {
	Rule          float64 `json:"rule"`
	Education     float64 `json:"education"`
	Age           float64 `json:"age"`
	Region        float64 `json:"region"`
	Heuristic     float64 `json:"heuristic"`
	LogAdjustment float64 `json:"logAdjustment"`
	Base          float64 `json:"base"`
	MLAdjustment  float64 `json:"mlAdjustment"`
}

type MatchLogEntry struct {
	ID                 string    `json:"id"`
	CreatedAt          time.Time `json:"createdAt"`
	CandidateID        string    `json:"candidateId"`
	CandidateEducation string    `json:"candidateEducation"`
	CandidateAge       int       `json:"candidateAge"`
	CandidateRegion    string    `json:"candidateRegion"`
	PostingID          string    `json:"postingId"`
	PostingCategory    string    `json:"postingCategory"`
	PostingRegion      string    `json:"postingRegion"`
	Score              float64   `json:"score"`
	Breakdown          Breakdown `json:"breakdown"`
	Outcome            Outcome   `json:"outcome"`
}

type LearnedPattern struct {
	Education       string    `json:"education"`
	Region          string    `json:"region"`
	AvgSuccessScore float64   `json:"avgSuccessScore"`
	Confidence      float64   `json:"confidence"`
	Samples         int       `json:"samples"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// HeuristicWeights is one row of the profile-class weight table.
type HeuristicWeights struct {
	Base             float64 `yaml:"base" json:"base"`
	CategoryBonus    float64 `yaml:"category_bonus" json:"categoryBonus"`
	KeywordBonus     float64 `yaml:"keyword_bonus" json:"keywordBonus"`
	KeywordCap       float64 `yaml:"keyword_cap" json:"keywordCap"`
	EligibilityBonus float64 `yaml:"eligibility_bonus" json:"eligibilityBonus"`
}
