package db

import (
	"context"
	"database/sql"
	"time"

	"crashscraper/internal/observability/metrics"
)

// ReportPoolStats publishes the connection pool gauges every interval until
// ctx is done. The worker runs it for the lifetime of the process.
func ReportPoolStats(ctx context.Context, database *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		stats := database.Stats()
		metrics.UpdateDBConnectionStats(stats.InUse, stats.Idle)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
