package repository

import (
	"context"
	"time"

	"crashscraper/internal/domain/entity"
)

// SourceRepository stores the publisher catalogue. Rows are keyed by name and
// are never deleted; sources dropped from the sources file are deactivated.
// Lookups of a missing row return (nil, nil).
type SourceRepository interface {
	Get(ctx context.Context, id int64) (*entity.Source, error)
	GetByName(ctx context.Context, name string) (*entity.Source, error)
	// List returns every source ordered by id, inactive ones included.
	List(ctx context.Context) ([]*entity.Source, error)
	ListActive(ctx context.Context) ([]*entity.Source, error)
	// Upsert writes base_url, kind and active of the row named source.Name,
	// creating it when missing, and returns its id.
	Upsert(ctx context.Context, source *entity.Source) (int64, error)
	// TouchCrawledAt records the end of a crawl of source id.
	TouchCrawledAt(ctx context.Context, id int64, t time.Time) error
}
