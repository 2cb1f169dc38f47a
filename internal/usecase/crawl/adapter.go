package crawl

import (
	"context"
	"time"

	"crashscraper/internal/domain/entity"
)

// Candidate is one entry of a listing page.
// PublishedAt is zero when the listing does not show a date.
type Candidate struct {
	URL         string
	Title       string
	Body        string
	PublishedAt time.Time
}

// Detail is the content extracted from an article page.
// Empty fields fall back to the listing candidate's values.
type Detail struct {
	Title       string
	Body        string
	RawContent  string
	PublishedAt time.Time
}

// SourceAdapter encapsulates everything publisher specific.
// Candidates must be yielded in descending PublishedAt order; the cutoff
// stop relies on it.
type SourceAdapter interface {
	// NextPage returns the candidates of the page identified by token ("" is
	// the first page) and the token of the following page ("" when there is
	// no further page).
	NextPage(ctx context.Context, token string) ([]Candidate, string, error)
	FetchDetail(ctx context.Context, c Candidate) (Detail, error)
}

// AdapterFactory builds the adapter for a stored source.
type AdapterFactory interface {
	AdapterFor(src *entity.Source) (SourceAdapter, error)
}
