// Package entity defines the core domain entities of the crawler: the Article
// that is scraped and classified, the Source it came from, the classification
// votes and labels, and the error taxonomy shared by the crawl and classify
// pipelines.
package entity

import "time"

// Article represents a news article ingested from a Source.
// Classification fields are nil/UNCLASSIFIED until the ensemble has run.
type Article struct {
	ID          int64
	SourceID    int64
	URL         string
	Title       string
	Body        string
	RawContent  string
	PublishedAt time.Time
	CreatedAt   time.Time
	Votes       Votes
	Label       Label
}

// IsAccident reports whether the stored label is ACCIDENT.
// The boolean view is always derived from Label and never persisted.
func (a *Article) IsAccident() bool {
	return a.Label == LabelAccident
}

// IsClassified reports whether every strategy has cast a vote.
func (a *Article) IsClassified() bool {
	return a.Votes.Complete()
}

// Validate checks the fields required before an article can be persisted.
func (a *Article) Validate() error {
	if a.URL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}
	if len(a.URL) > maxURLLength {
		return &ValidationError{Field: "url", Message: "url too long"}
	}
	if a.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if a.SourceID <= 0 {
		return &ValidationError{Field: "source_id", Message: "source_id must be positive"}
	}
	return nil
}
