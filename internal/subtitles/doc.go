// Package subtitles handles subtitle files that live beside a source:
// discovering external sidecars and reading language and disposition from
// their names, naming ripped sidecars, and downloading missing languages
// from OpenSubtitles. Downloaded files are stripped of advertisement cues
// and rejected when their timing does not fit the source runtime.
package subtitles
