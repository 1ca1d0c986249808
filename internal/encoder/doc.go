// Package encoder drives the ffmpeg executable.
//
// Args turns a transcode.Directive into an argument vector without touching
// the filesystem. FFmpeg runs that vector, reporting progress parsed from
// ffmpeg's stats lines, and also provides the smaller helpers the pipeline
// needs: subtitle extraction, the text-subtitle probe used to classify
// unknown codecs, and the stream-copy remux used for tagging.
package encoder
