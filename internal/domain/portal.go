package domain

import "time"

// Selectors are the CSS selectors used to pull postings out of a portal page.
// Every selector except Container is evaluated relative to a container match.
type Selectors struct {
	Container    string `yaml:"container" json:"container"`
	Title        string `yaml:"title" json:"title"`
	Organization string `yaml:"organization" json:"organization"`
	Location     string `yaml:"location" json:"location"`
	Description  string `yaml:"description" json:"description"`
	Salary       string `yaml:"salary" json:"salary"`
	Link         string `yaml:"link" json:"link"`
}

type Portal struct {
	Name             string        `yaml:"name" json:"name"`
	BaseURL          string        `yaml:"base_url" json:"baseURL"`
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	Every            time.Duration `yaml:"every" json:"every"`
	RateLimitPerHour int           `yaml:"rate_limit_per_hour,omitempty" json:"rateLimitPerHour,omitempty"`
	Selectors        Selectors     `yaml:"selectors" json:"selectors"`
}

// ByField maps YAML field names to selectors.
func (s Selectors) ByField() map[string]string {
	return map[string]string{
		"container":    s.Container,
		"title":        s.Title,
		"organization": s.Organization,
		"location":     s.Location,
		"description":  s.Description,
		"salary":       s.Salary,
		"link":         s.Link,
	}
}
