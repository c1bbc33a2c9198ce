// Package makerom wraps the archive builder. It assembles CCI and CIA
// containers from decrypted partitions, rebuilds DS titles from extracted
// content, and converts CIA archives to CCI.
//
// Argument construction is exposed as pure functions so the exact command
// lines can be tested without running the tool.
package makerom
