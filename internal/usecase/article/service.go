package article

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/logging"
	"crashscraper/internal/observability/metrics"
	"crashscraper/internal/repository"
)

// SourceCount is the number of stored articles of one source.
type SourceCount struct {
	SourceID int64
	Name     string
	Count    int64
}

// Stats is a snapshot of the article store.
type Stats struct {
	Total    int64
	ByLabel  map[entity.Label]int64
	BySource []SourceCount // Count の降順
}

// Service provides article maintenance use cases.
// Sources is optional and only used to name the per-source counts.
type Service struct {
	Repo    repository.ArticleRepository
	Sources repository.SourceRepository
}

// Stats returns the per-label and per-source article counts.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if s.Repo == nil {
		return nil, ErrNilRepository
	}

	byLabel, err := s.Repo.CountByLabel(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by label: %w", err)
	}
	bySource, err := s.Repo.CountBySource(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}

	names := map[int64]string{}
	if s.Sources != nil {
		sources, err := s.Sources.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		for _, src := range sources {
			names[src.ID] = src.Name
		}
	}

	st := &Stats{ByLabel: make(map[entity.Label]int64, 3)}
	for _, l := range []entity.Label{entity.LabelAccident, entity.LabelNotAccident, entity.LabelUnclassified} {
		st.ByLabel[l] = byLabel[l]
		st.Total += byLabel[l]
	}
	for id, n := range bySource {
		name, ok := names[id]
		if !ok {
			name = fmt.Sprintf("source #%d", id)
		}
		st.BySource = append(st.BySource, SourceCount{SourceID: id, Name: name, Count: n})
	}
	sort.Slice(st.BySource, func(i, j int) bool {
		if st.BySource[i].Count != st.BySource[j].Count {
			return st.BySource[i].Count > st.BySource[j].Count
		}
		return st.BySource[i].Name < st.BySource[j].Name
	})

	metrics.UpdateArticlesTotal(st.Total)
	return st, nil
}

// Dedupe removes articles whose URL is already stored under a lower id and
// returns the number of deleted rows.
func (s *Service) Dedupe(ctx context.Context) (int64, error) {
	if s.Repo == nil {
		return 0, ErrNilRepository
	}
	n, err := s.Repo.DeleteDuplicateURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete duplicate urls: %w", err)
	}
	logging.FromContext(ctx).Info("duplicate articles removed", slog.Int64("deleted", n))
	return n, nil
}
