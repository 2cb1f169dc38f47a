// Package sqlite provides SQLite implementations of the repository interfaces,
// used for single-host deployments and local runs of the crawler.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/metrics"
	"crashscraper/internal/repository"
)

// maxPlaceholders is SQLITE_MAX_VARIABLE_NUMBER on builds older than 3.32.
// https://www.sqlite.org/limits.html#max_variable_number
const maxPlaceholders = 999

const articleColumns = `id, source_id, url, title, body, raw_content, published_at, created_at,
       vote_literal, vote_stem, vote_lemma, vote_weighted, label`

// ArticleRepo implements the ArticleRepository interface using SQLite.
type ArticleRepo struct{ db *sql.DB }

// NewArticleRepo creates a new SQLite-backed article repository.
func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

// observeQuery records the duration of a query started at start.
func observeQuery(op string, start time.Time) {
	metrics.RecordDBQuery("sqlite_"+op, time.Since(start))
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
		Literal:  toBoolPtr(literal),
		Stem:     toBoolPtr(stem),
		Lemma:    toBoolPtr(lemma),
		Weighted: toBoolPtr(weighted),
	}
	l, err := entity.ParseLabel(label)
	if err != nil {
		return nil, err
	}
	article.Label = l
	return &article, nil
}

func toBoolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	v := b.Bool
	return &v
}

func toNullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// ExistsByURLBatch looks up the URLs with one IN query per chunk of
// maxPlaceholders, so a listing page costs a single round trip.
func (repo *ArticleRepo) ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error) {
	defer observeQuery("exists_by_url_batch", time.Now())
	result := make(map[string]bool, len(urls))
	for chunk := range slices.Chunk(urls, maxPlaceholders) {
		if err := repo.existingURLs(ctx, chunk, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (repo *ArticleRepo) existingURLs(ctx context.Context, urls []string, into map[string]bool) error {
	args := make([]any, len(urls))
	for i, url := range urls {
		args[i] = url
	}
	// placeholders は "?" のみで構成されるため SQL インジェクションの余地はない
	query := fmt.Sprintf("SELECT url FROM articles WHERE url IN (%s)", placeholders(len(urls)))

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ExistsByURLBatch: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return fmt.Errorf("ExistsByURLBatch: Scan: %w", err)
		}
		into[url] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ExistsByURLBatch: rows.Err: %w", err)
	}
	return nil
}

// Insert stores the article; a URL conflict returns entity.ErrDuplicate.
func (repo *ArticleRepo) Insert(ctx context.Context, article *entity.Article) (int64, error) {
	defer observeQuery("insert_article", time.Now())
	const query = `
INSERT INTO articles (source_id, url, title, body, raw_content, published_at, label)
VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?)
ON CONFLICT(url) DO NOTHING
RETURNING id`
	var published sql.NullTime
	if !article.PublishedAt.IsZero() {
		published = sql.NullTime{Time: article.PublishedAt.UTC(), Valid: true}
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
		return 0, fmt.Errorf("Insert: QueryRowContext: %w", err)
	}
	article.ID = id
	return id, nil
}

// ListUnclassified pages through the articles with at least one NULL vote.
func (repo *ArticleRepo) ListUnclassified(ctx context.Context, afterID int64, limit int) ([]*entity.Article, error) {
	defer observeQuery("list_unclassified", time.Now())
	const query = `SELECT ` + articleColumns + ` FROM articles
WHERE id > ?
  AND (vote_literal IS NULL OR vote_stem IS NULL OR vote_lemma IS NULL OR vote_weighted IS NULL)
ORDER BY id ASC LIMIT ?`
	rows, err := repo.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListUnclassified: QueryContext: %w", err)
	}
	return collectArticles(rows, limit, "ListUnclassified")
}

// ListAfterID pages through every article by ascending id.
func (repo *ArticleRepo) ListAfterID(ctx context.Context, afterID int64, limit int) ([]*entity.Article, error) {
	const query = `SELECT ` + articleColumns + ` FROM articles WHERE id > ? ORDER BY id ASC LIMIT ?`
	rows, err := repo.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListAfterID: QueryContext: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows.Err: %w", op, err)
	}
	return articles, nil
}

// UpdateClassification writes all four votes and the label derived from them
// in one statement.
func (repo *ArticleRepo) UpdateClassification(ctx context.Context, id int64, votes entity.Votes) error {
	defer observeQuery("update_classification", time.Now())
	const query = `
UPDATE articles
SET vote_literal = ?, vote_stem = ?, vote_lemma = ?, vote_weighted = ?, label = ?
WHERE id = ?`
	res, err := repo.db.ExecContext(ctx, query,
		toNullBool(votes.Literal), toNullBool(votes.Stem), toNullBool(votes.Lemma), toNullBool(votes.Weighted),
		string(entity.LabelFromVotes(votes)), id,
	)
	if err != nil {
		return fmt.Errorf("UpdateClassification: ExecContext: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateClassification: %w", entity.ErrNotFound)
	}
	return nil
}

// CountBySource returns the number of stored articles per source id.
func (repo *ArticleRepo) CountBySource(ctx context.Context) (map[int64]int64, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT source_id, COUNT(*) FROM articles GROUP BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("CountBySource: QueryContext: %w", err)
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

// CountByLabel returns the number of stored articles per final label.
func (repo *ArticleRepo) CountByLabel(ctx context.Context) (map[entity.Label]int64, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT label, COUNT(*) FROM articles GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("CountByLabel: QueryContext: %w", err)
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

// DeleteDuplicateURLs keeps the lowest id for every URL.
func (repo *ArticleRepo) DeleteDuplicateURLs(ctx context.Context) (int64, error) {
	const query = `
DELETE FROM articles
WHERE id NOT IN (SELECT MIN(id) FROM articles GROUP BY url)`
	res, err := repo.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("DeleteDuplicateURLs: ExecContext: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
