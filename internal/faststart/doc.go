// Package faststart moves the MP4 movie header (moov) ahead of the media
// data (mdat) so players can start before the whole file is read. Chunk
// offset tables (stco and co64) are rewritten to match the new layout.
package faststart
