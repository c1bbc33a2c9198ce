// Package logging assembles the structured slog loggers used by ctrdecrypt.
//
// A run writes one compact console stream and one per-run file in the log
// directory. Both carry the run identifier; task, batch, and stage fields come
// from the context helpers in internal/services. Old run logs are pruned by
// PruneRunLogs according to the configured retention.
package logging
