package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/metrics"
	"crashscraper/internal/repository"

	"github.com/lib/pq"
)

const articleColumns = `id, source_id, url, title, body, raw_content, published_at, created_at,
       vote_literal, vote_stem, vote_lemma, vote_weighted, label`

type ArticleRepo struct {
	db *sql.DB
}

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

// observeQuery records the duration of a query started at start.
func observeQuery(op string, start time.Time) {
	metrics.RecordDBQuery("postgres_"+op, time.Since(start))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(s rowScanner) (*entity.Article, error) {
	var article entity.Article
	var raw sql.NullString
	var published sql.NullTime
	var literal, stem, lemma, weighted sql.NullBool
	var label string
	if err := s.Scan(&article.ID, &article.SourceID, &article.URL, &article.Title,
		&article.Body, &raw, &published, &article.CreatedAt,
		&literal, &stem, &lemma, &weighted, &label); err != nil {
		return nil, err
	}
	article.RawContent = raw.String
	if published.Valid {
		article.PublishedAt = published.Time
	}
	article.Votes = entity.Votes{
		Literal:  nullBoolPtr(literal),
		Stem:     nullBoolPtr(stem),
		Lemma:    nullBoolPtr(lemma),
		Weighted: nullBoolPtr(weighted),
	}
	l, err := entity.ParseLabel(label)
	if err != nil {
		return nil, err
	}
	article.Label = l
	return &article, nil
}

func nullBoolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	v := b.Bool
	return &v
}

func boolArg(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

// ExistsByURLBatch looks up a whole listing page with a single ANY($1) query.
func (repo *ArticleRepo) ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error) {
	defer observeQuery("exists_by_url_batch", time.Now())
	if len(urls) == 0 {
		return make(map[string]bool), nil
	}

	const query = `SELECT url FROM articles WHERE url = ANY($1)`
	rows, err := repo.db.QueryContext(ctx, query, pq.Array(urls))
	if err != nil {
		return nil, fmt.Errorf("ExistsByURLBatch: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool, len(urls))
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("ExistsByURLBatch: Scan: %w", err)
		}
		result[url] = true
	}
	return result, rows.Err()
}

// Insert relies on the unique url index: a conflicting insert returns no row,
// which is reported as entity.ErrDuplicate.
func (repo *ArticleRepo) Insert(ctx context.Context, article *entity.Article) (int64, error) {
	defer observeQuery("insert_article", time.Now())
	const query = `
INSERT INTO articles
       (source_id, url, title, body, raw_content, published_at, label)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
ON CONFLICT (url) DO NOTHING
RETURNING id`
	var published sql.NullTime
	if !article.PublishedAt.IsZero() {
		published = sql.NullTime{Time: article.PublishedAt, Valid: true}
	}
	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		article.SourceID, article.URL, article.Title, article.Body,
		article.RawContent, published, string(entity.LabelUnclassified),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, entity.ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("Insert: %w", err)
	}
	article.ID = id
	return id, nil
}

func (repo *ArticleRepo) ListUnclassified(ctx context.Context, afterID int64, limit int) ([]*entity.Article, error) {
	defer observeQuery("list_unclassified", time.Now())
	const query = `SELECT ` + articleColumns + `
FROM articles
WHERE id > $1
  AND (vote_literal IS NULL OR vote_stem IS NULL OR vote_lemma IS NULL OR vote_weighted IS NULL)
ORDER BY id ASC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListUnclassified: %w", err)
	}
	return collectArticles(rows, limit, "ListUnclassified")
}

func (repo *ArticleRepo) ListAfterID(ctx context.Context, afterID int64, limit int) ([]*entity.Article, error) {
	const query = `SELECT ` + articleColumns + `
FROM articles
WHERE id > $1
ORDER BY id ASC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListAfterID: %w", err)
	}
	return collectArticles(rows, limit, "ListAfterID")
}

func collectArticles(rows *sql.Rows, capHint int, op string) ([]*entity.Article, error) {
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, capHint)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: Scan: %w", op, err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// UpdateClassification stores the votes together with the label they imply.
func (repo *ArticleRepo) UpdateClassification(ctx context.Context, id int64, votes entity.Votes) error {
	defer observeQuery("update_classification", time.Now())
	const query = `
UPDATE articles SET
       vote_literal  = $1,
       vote_stem     = $2,
       vote_lemma    = $3,
       vote_weighted = $4,
       label         = $5
WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, query,
		boolArg(votes.Literal), boolArg(votes.Stem), boolArg(votes.Lemma), boolArg(votes.Weighted),
		string(entity.LabelFromVotes(votes)), id,
	)
	if err != nil {
		return fmt.Errorf("UpdateClassification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateClassification: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArticleRepo) CountBySource(ctx context.Context) (map[int64]int64, error) {
	const query = `SELECT source_id, COUNT(*) FROM articles GROUP BY source_id`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CountBySource: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[int64]int64)
	for rows.Next() {
		var sourceID, n int64
		if err := rows.Scan(&sourceID, &n); err != nil {
			return nil, fmt.Errorf("CountBySource: Scan: %w", err)
		}
		counts[sourceID] = n
	}
	return counts, rows.Err()
}

func (repo *ArticleRepo) CountByLabel(ctx context.Context) (map[entity.Label]int64, error) {
	const query = `SELECT label, COUNT(*) FROM articles GROUP BY label`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CountByLabel: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[entity.Label]int64)
	for rows.Next() {
		var label string
		var n int64
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("CountByLabel: Scan: %w", err)
		}
		l, err := entity.ParseLabel(label)
		if err != nil {
			return nil, fmt.Errorf("CountByLabel: %w", err)
		}
		counts[l] += n
	}
	return counts, rows.Err()
}

func (repo *ArticleRepo) DeleteDuplicateURLs(ctx context.Context) (int64, error) {
	const query = `
DELETE FROM articles a
USING articles b
WHERE a.url = b.url
  AND a.id > b.id`
	res, err := repo.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("DeleteDuplicateURLs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
