package persistence

import (
	"testing"

	"crashscraper/internal/infra/adapter/persistence/postgres"
	"crashscraper/internal/infra/adapter/persistence/sqlite"
	"crashscraper/internal/infra/db"

	"github.com/stretchr/testify/assert"
)

func TestNewRepositories(t *testing.T) {
	repos := NewRepositories(nil, db.DialectSQLite)
	assert.IsType(t, &sqlite.ArticleRepo{}, repos.Articles)
	assert.IsType(t, &sqlite.SourceRepo{}, repos.Sources)

	repos = NewRepositories(nil, db.DialectPostgres)
	assert.IsType(t, &postgres.ArticleRepo{}, repos.Articles)
	assert.IsType(t, &postgres.SourceRepo{}, repos.Sources)
}
