// Package opensubtitles is a small client for the OpenSubtitles REST API:
// movie-hash search, srt download and retry helpers.
package opensubtitles
