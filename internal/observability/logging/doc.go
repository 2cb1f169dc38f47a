// Package logging builds the slog loggers of the worker and the CLI and
// carries them through context.Context.
//
// The worker logs JSON to stdout (NewLogger). The CLI logs text to stderr
// (NewTextLogger) so that command output on stdout stays clean. LOG_LEVEL
// selects the level for both.
//
// A scheduled run tags every record with its job id:
//
//	ctx = logging.WithJobID(ctx, logging.NewJobID())
//	logging.FromContext(ctx).Info("crawl started", slog.String("source", name))
package logging
