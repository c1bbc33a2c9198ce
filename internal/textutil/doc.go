// Package textutil provides filename sanitisation helpers.
//
// The external 3DS tools choke on punctuation and non-ASCII Latin characters
// in paths, so inputs are renamed through SanitizeFileName before any task
// starts. Accented letters are folded with golang.org/x/text instead of being
// dropped outright.
package textutil
