// Package persistence selects the repository implementations for a dialect.
package persistence

import (
	"database/sql"

	"crashscraper/internal/infra/adapter/persistence/postgres"
	"crashscraper/internal/infra/adapter/persistence/sqlite"
	"crashscraper/internal/infra/db"
	"crashscraper/internal/repository"
)

// Repositories bundles the stores shared by the worker and the CLI.
type Repositories struct {
	Articles repository.ArticleRepository
	Sources  repository.SourceRepository
}

// NewRepositories returns the repositories of dialect backed by conn.
func NewRepositories(conn *sql.DB, dialect db.Dialect) Repositories {
	if dialect == db.DialectSQLite {
		return Repositories{
			Articles: sqlite.NewArticleRepo(conn),
			Sources:  sqlite.NewSourceRepo(conn),
		}
	}
	return Repositories{
		Articles: postgres.NewArticleRepo(conn),
		Sources:  postgres.NewSourceRepo(conn),
	}
}
