package source

import (
	"context"
	"fmt"
	"log/slog"

	"crashscraper/internal/config"
	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/logging"
	"crashscraper/internal/observability/metrics"
	"crashscraper/internal/repository"
)

// SyncResult summarizes one Sync call.
type SyncResult struct {
	Upserted    int
	Deactivated []string // stored sources missing from the file
}

// Service provides source management use cases.
// It handles business logic for source operations and delegates persistence to the repository.
type Service struct {
	Repo repository.SourceRepository
}

// List retrieves all sources from the repository.
// Returns an error if the repository operation fails.
func (s *Service) List(ctx context.Context) ([]*entity.Source, error) {
	sources, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

// Get retrieves a source by name.
// Returns ErrSourceNotFound if no such source is stored.
func (s *Service) Get(ctx context.Context, name string) (*entity.Source, error) {
	src, err := s.Repo.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	return src, nil
}

// Sync upserts every configured source by name and deactivates stored
// sources that are no longer configured. Rows are never deleted because
// articles reference them.
func (s *Service) Sync(ctx context.Context, configured []config.SourceConfig) (SyncResult, error) {
	var res SyncResult
	if len(configured) == 0 {
		return res, ErrNoSources
	}
	logger := logging.FromContext(ctx)

	names := make(map[string]struct{}, len(configured))
	for _, sc := range configured {
		src := sc.Entity()
		if err := src.Validate(); err != nil {
			return res, fmt.Errorf("source %s: %w", sc.Name, err)
		}
		id, err := s.Repo.Upsert(ctx, src)
		if err != nil {
			return res, fmt.Errorf("upsert source %s: %w", sc.Name, err)
		}
		names[sc.Name] = struct{}{}
		res.Upserted++
		logger.Debug("source synced",
			slog.String("source", sc.Name),
			slog.Int64("source_id", id),
			slog.Bool("active", src.Active))
	}

	stored, err := s.Repo.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list sources: %w", err)
	}
	active := 0
	for _, src := range stored {
		if _, ok := names[src.Name]; ok {
			if src.Active {
				active++
			}
			continue
		}
		if !src.Active {
			continue
		}
		src.Active = false
		if _, err := s.Repo.Upsert(ctx, src); err != nil {
			return res, fmt.Errorf("deactivate source %s: %w", src.Name, err)
		}
		res.Deactivated = append(res.Deactivated, src.Name)
		logger.Info("source deactivated, no longer configured",
			slog.String("source", src.Name))
	}
	metrics.UpdateSourcesTotal(active)

	return res, nil
}
