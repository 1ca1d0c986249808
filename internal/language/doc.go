// Package language provides language code normalization and the per-file
// language policy used when selecting audio and subtitle streams.
//
// Codes are normalized to ISO 639-2 (3-letter). A small local table covers
// common languages and their bibliographic variants; anything else is
// resolved through golang.org/x/text/language.
package language
