// Package ledger keeps a SQLite history of decryption runs.
//
// Each run records its merged counters and aggregate outcome; each task
// records the terminal state reached for one input file. The history backs
// the `history` command and is purely informational: the pipeline never reads
// it back to make decisions.
package ledger
