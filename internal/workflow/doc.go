// Package workflow drives a complete decryption run over one input directory.
//
// The Manager takes the run lock, reaps leftovers from interrupted runs,
// normalizes input file names, and then runs up to three batches in order:
// 3DS images, CIA archives, and (when enabled) the CIA to CCI conversion of
// the archives the CIA batch produced. Tasks inside a batch run concurrently,
// each in its own workspace; their private counters flow over a channel to a
// single aggregator, which is the only place the run totals are updated.
package workflow
