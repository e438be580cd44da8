package domain

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusExpired   Status = "expired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusExpired:
		return true
	}
	return false
}

type Posting struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Organization string    `json:"organization"`
	Location     string    `json:"location"`
	Description  string    `json:"description"`
	Salary       string    `json:"salary"`
	Category     string    `json:"category"`
	Education    string    `json:"education"`
	MinAge       int       `json:"minAge"` // 0 = no lower bound
	MaxAge       int       `json:"maxAge"` // 0 = no upper bound
	Fingerprint  string    `json:"fingerprint"`
	SourcePortal string    `json:"sourcePortal"`
	SourceURL    string    `json:"sourceURL"`
	DiscoveredAt time.Time `json:"discoveredAt"`
	Status       Status    `json:"status"`
}

// RunSummary is written once per scheduled job execution.
type RunSummary struct {
	ID         string    `json:"id"`
	JobID      string    `json:"jobId"`
	Portal     string    `json:"portal,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Found      int       `json:"found"`
	Added      int       `json:"added"`
	Duplicates int       `json:"duplicates"`
	Deleted    int       `json:"deleted"`
	Expired    int       `json:"expired"`
	Status     string    `json:"status"` // ok | rate_limited | failed
	Error      string    `json:"error,omitempty"`
}

const (
	RunOK          = "ok"
	RunRateLimited = "rate_limited"
	RunFailed      = "failed"
)
