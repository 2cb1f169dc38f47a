package db

import (
	"context"
	"database/sql"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS sources (
    id              BIGSERIAL PRIMARY KEY,
    name            TEXT NOT NULL UNIQUE,
    base_url        TEXT NOT NULL DEFAULT '',
    kind            VARCHAR(10) NOT NULL DEFAULT 'html',
    active          BOOLEAN NOT NULL DEFAULT TRUE,
    last_crawled_at TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS articles (
    id             BIGSERIAL PRIMARY KEY,
    source_id      BIGINT NOT NULL REFERENCES sources(id),
    url            TEXT NOT NULL UNIQUE,
    title          TEXT NOT NULL,
    body           TEXT NOT NULL DEFAULT '',
    raw_content    TEXT,
    published_at   TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    vote_literal   BOOLEAN,
    vote_stem      BOOLEAN,
    vote_lemma     BOOLEAN,
    vote_weighted  BOOLEAN,
    label          VARCHAR(16) NOT NULL DEFAULT 'UNCLASSIFIED'
)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_source_id ON articles(source_id)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
	// 未分類記事の抽出用（部分インデックス）
	`CREATE INDEX IF NOT EXISTS idx_articles_unclassified ON articles(id)
    WHERE vote_literal IS NULL OR vote_stem IS NULL OR vote_lemma IS NULL OR vote_weighted IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_articles_label ON articles(label)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sources (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT NOT NULL UNIQUE,
    base_url        TEXT NOT NULL DEFAULT '',
    kind            TEXT NOT NULL DEFAULT 'html',
    active          BOOLEAN NOT NULL DEFAULT 1,
    last_crawled_at DATETIME,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS articles (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id      INTEGER NOT NULL REFERENCES sources(id),
    url            TEXT NOT NULL UNIQUE,
    title          TEXT NOT NULL,
    body           TEXT NOT NULL DEFAULT '',
    raw_content    TEXT,
    published_at   DATETIME,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    vote_literal   BOOLEAN,
    vote_stem      BOOLEAN,
    vote_lemma     BOOLEAN,
    vote_weighted  BOOLEAN,
    label          TEXT NOT NULL DEFAULT 'UNCLASSIFIED'
)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_source_id ON articles(source_id)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_label ON articles(label)`,
}

// MigrateUp creates the sources and articles tables and their indexes.
// Every statement is idempotent.
func MigrateUp(ctx context.Context, db *sql.DB, dialect Dialect) error {
	stmts := postgresSchema
	if dialect == DialectSQLite {
		stmts = sqliteSchema
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("MigrateUp: statement %d: %w", i+1, err)
		}
	}
	return nil
}

// MigrateDown drops the tables created by MigrateUp.
// Use with caution: this deletes every stored article.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS articles`,
		`DROP TABLE IF EXISTS sources`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("MigrateDown: %w", err)
		}
	}
	return nil
}
