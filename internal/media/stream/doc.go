// Package stream normalizes probed media into a single Stream type shared
// by video, audio, subtitle, and attachment tracks.
//
// Languages are ISO 639-2 ("und" when absent) and dispositions are a typed
// flag set, with flags implied by the stream title merged in.
package stream
