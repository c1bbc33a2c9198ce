// Package tally holds the run counters. Each task fills a private Counters
// value which the aggregator folds into the run total with Combine.
package tally
