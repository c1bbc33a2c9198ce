// Package workspace gives every task a private directory holding its own
// links (or copies) of the external tools and the seed database.
//
// The tools write their partition files into the current directory, so
// concurrent tasks must never share one. A workspace is removed when the
// task finishes, whether it returned normally, failed, or panicked.
package workspace
