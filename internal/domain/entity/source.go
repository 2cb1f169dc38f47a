package entity

import (
	"fmt"
	"time"
)

// Source kinds understood by the adapter factory.
const (
	SourceKindHTML = "html"
	SourceKindRSS  = "rss"
)

// Source represents one publisher being ingested.
type Source struct {
	ID            int64
	Name          string
	BaseURL       string
	Kind          string
	Active        bool
	LastCrawledAt *time.Time
	CreatedAt     time.Time
}

// Validate validates the Source entity fields.
// An empty Kind is treated as html for backward compatibility with rows
// created before the column existed.
func (s *Source) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if s.Kind == "" {
		s.Kind = SourceKindHTML
	}
	if s.Kind != SourceKindHTML && s.Kind != SourceKindRSS {
		return fmt.Errorf("invalid kind: %s (must be html or rss)", s.Kind)
	}
	if s.BaseURL != "" {
		if err := ValidateURL(s.BaseURL); err != nil {
			return err
		}
	}
	return nil
}
