package repository

import (
	"context"

	"crashscraper/internal/domain/entity"
)

// ArticleRepository is the persistence contract shared by the crawl and
// classify pipelines. Articles are keyed by URL; classification fields are the
// only ones mutated after insert.
type ArticleRepository interface {
	// ExistsByURLBatch reports which of urls are already stored, one query
	// per listing page. Only stored URLs appear in the map.
	ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error)
	// Insert stores a new article and returns its id.
	// A second insert with an existing URL returns entity.ErrDuplicate.
	Insert(ctx context.Context, article *entity.Article) (int64, error)
	// ListUnclassified returns up to limit articles with id > afterID and at
	// least one missing vote, ordered by id.
	ListUnclassified(ctx context.Context, afterID int64, limit int) ([]*entity.Article, error)
	// ListAfterID returns up to limit articles with id > afterID ordered by id.
	ListAfterID(ctx context.Context, afterID int64, limit int) ([]*entity.Article, error)
	// UpdateClassification overwrites the four votes in one statement. The
	// stored label is always entity.LabelFromVotes(votes).
	UpdateClassification(ctx context.Context, id int64, votes entity.Votes) error
	CountBySource(ctx context.Context) (map[int64]int64, error)
	CountByLabel(ctx context.Context) (map[entity.Label]int64, error)
	// DeleteDuplicateURLs keeps the lowest id per URL and removes the rest.
	DeleteDuplicateURLs(ctx context.Context) (int64, error)
}
