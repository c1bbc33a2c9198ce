// Package services defines shared utilities consumed by the decrypt pipeline
// and the external tool clients.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, task IDs, batch and stage names for
//     logging and ledger correlation.
//   - Structured error markers plus the Wrap helper that keep external tool
//     failures, timeouts and configuration problems distinguishable.
//
// The tool clients themselves live in subpackages (toolrun, ctrtool,
// decryptor, makerom) so each can be faked in tests.
package services
