// Package capabilities queries an ffmpeg build for hardware acceleration
// platforms and available encoders and decoders.
package capabilities
