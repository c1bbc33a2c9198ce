// Package ctrtool wraps the inspector binary that prints title metadata for
// 3DS and CIA archives and extracts the embedded content of DS (TWL) titles.
//
// The report text is returned verbatim; parsing lives in internal/title.
package ctrtool
