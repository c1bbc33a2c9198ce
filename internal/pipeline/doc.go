// Package pipeline implements the per-file state machines that decrypt 3DS
// cartridge images and CIA archives and optionally convert decrypted CIA
// archives to CCI.
//
// Each method runs inside a task workspace, drives the external tools through
// their clients, and returns a Result holding the terminal State and the
// task's private Counters. Success is decided only by whether the expected
// output file exists after the builder ran; tool exit codes are logged and
// otherwise ignored.
package pipeline
