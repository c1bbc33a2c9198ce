// Package reassembly turns the partition files written by the decryptor into
// an ordered list of builder inputs.
//
// Fragments are first marked pending by renaming them with the "tmp." prefix,
// then discovered in name order and mapped to (slot, index) pairs by one of
// three strategies: a fixed partition-name table for 3DS cartridges, the
// sorted position for ordinary CIA titles, and the declared content
// identifiers from the inspector report for patches and DLC.
package reassembly
