// Package title turns inspector reports into title records and maps title
// identifiers onto categories.
//
// Parsing is a single pass over the report lines where every field keeps the
// first value it sees. Two keyword dialects exist: the default one used for
// ordinary CTR reports and the TWL one used when a CIA wraps a legacy DSi
// title. Classification walks an ordered rule list and returns the first
// category whose identifier fragments appear in the title ID.
package title
