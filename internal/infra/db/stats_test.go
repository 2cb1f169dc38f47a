package db

import (
	"context"
	"testing"
	"time"

	"crashscraper/internal/observability/metrics"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportPoolStats(t *testing.T) {
	database, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = database.Close() }()

	metrics.UpdateDBConnectionStats(7, 7)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// キャンセル済みでも一度は値を公開する
	ReportPoolStats(ctx, database, time.Hour)

	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.DBConnectionsActive))
}
