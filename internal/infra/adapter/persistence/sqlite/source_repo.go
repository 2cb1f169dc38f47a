package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/repository"
)

const sourceColumns = `id, name, base_url, kind, active, last_crawled_at, created_at`

// SourceRepo implements the SourceRepository interface using SQLite.
type SourceRepo struct{ db *sql.DB }

// NewSourceRepo creates a new SQLite-backed source repository.
func NewSourceRepo(db *sql.DB) repository.SourceRepository {
	return &SourceRepo{db: db}
}

func scanSource(s rowScanner) (*entity.Source, error) {
	var source entity.Source
	var crawled sql.NullTime
	if err := s.Scan(&source.ID, &source.Name, &source.BaseURL, &source.Kind,
		&source.Active, &crawled, &source.CreatedAt); err != nil {
		return nil, err
	}
	if crawled.Valid {
		t := crawled.Time
		source.LastCrawledAt = &t
	}
	return &source, nil
}

func (repo *SourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	const query = `SELECT ` + sourceColumns + ` FROM sources WHERE id = ? LIMIT 1`
	source, err := scanSource(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	return source, nil
}

func (repo *SourceRepo) GetByName(ctx context.Context, name string) (*entity.Source, error) {
	const query = `SELECT ` + sourceColumns + ` FROM sources WHERE name = ? LIMIT 1`
	source, err := scanSource(repo.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByName: QueryRowContext: %w", err)
	}
	return source, nil
}

func (repo *SourceRepo) List(ctx context.Context) ([]*entity.Source, error) {
	return repo.query(ctx, "List", `SELECT `+sourceColumns+` FROM sources ORDER BY id ASC`)
}

func (repo *SourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	return repo.query(ctx, "ListActive", `SELECT `+sourceColumns+` FROM sources WHERE active = 1 ORDER BY id ASC`)
}

func (repo *SourceRepo) query(ctx context.Context, op, query string) ([]*entity.Source, error) {
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: QueryContext: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 16)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: Scan: %w", op, err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows.Err: %w", op, err)
	}
	return sources, nil
}

func (repo *SourceRepo) Upsert(ctx context.Context, source *entity.Source) (int64, error) {
	const query = `
INSERT INTO sources (name, base_url, kind, active)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
    base_url = excluded.base_url,
    kind     = excluded.kind,
    active   = excluded.active
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		source.Name, source.BaseURL, source.Kind, source.Active,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("Upsert: QueryRowContext: %w", err)
	}
	source.ID = id
	return id, nil
}

func (repo *SourceRepo) TouchCrawledAt(ctx context.Context, id int64, t time.Time) error {
	const query = `UPDATE sources SET last_crawled_at = ? WHERE id = ?`
	if _, err := repo.db.ExecContext(ctx, query, t.UTC(), id); err != nil {
		return fmt.Errorf("TouchCrawledAt: ExecContext: %w", err)
	}
	return nil
}
