// Package tagging writes descriptive metadata into finished outputs.
//
// Tags are applied by a stream-copy remux, so the media is never
// re-encoded. For MP4-family containers the written title is read back
// with github.com/dhowden/tag. Any failure is reported as ErrTagging and
// leaves the output usable.
package tagging
