package notifier

import (
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/resilience/retry"
)

/* ─── ヘルパ ─── */

func accidentArticle() *entity.Article {
	return &entity.Article{
		ID:          42,
		SourceID:    1,
		Title:       "Choque frontal en la ruta 5 deja dos heridos",
		URL:         "https://diario.example.com/nota/42",
		Body:        "Un choque   frontal entre un camión y un auto\nocurrió esta mañana en la ruta 5.",
		PublishedAt: time.Date(2025, 3, 12, 8, 30, 0, 0, time.UTC),
		Votes:       entity.NewVotes(true, true, false, true),
		Label:       entity.LabelAccident,
	}
}

func testSource() *entity.Source {
	return &entity.Source{ID: 1, Name: "Diario Sur", BaseURL: "https://diario.example.com", Active: true}
}

// fastRetry keeps retry delays negligible in tests.
func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}
