// Package toolrun executes the external 3DS tools on behalf of the pipeline.
//
// Every invocation runs with its working directory pinned to a task
// workspace, optionally feeds a fixed stdin payload, captures combined
// stdout/stderr, and reports the exit code without treating it as failure:
// callers decide success by checking for the files the tool was expected to
// write. Windows-only builds (".exe") are launched through wine on other
// hosts.
//
// Prefer the Executor interface over ad-hoc exec.Command usage so tests can
// substitute a fake that simulates the tools' filesystem side effects.
package toolrun
