// Package preflight verifies, before any task starts, that the external tools
// resolve and that the directories and seed database a run touches are usable.
//
// The run command aborts with a configuration error when RunAll reports a
// failure; the doctor command prints the same report as a table.
package preflight
