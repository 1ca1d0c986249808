package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mmt/internal/media/resolution"
)

const (
	partialSuffix  = ".part"
	originalSuffix = ".original"
)

// Naming describes one output file.
type Naming struct {
	Source string
	Dir    string
	Tier   resolution.Tier
	Ext    string
	Copy   bool
	Multi  bool
}

// OutputName returns the output path for n: "<base>.<ext>" for a single
// tier, "<base>-<tier>p.<ext>" when several tiers are produced and
// "<base>-copy.<ext>" for the working copy. Dir defaults to the source
// directory.
func OutputName(n Naming) string {
	dir := n.Dir
	if dir == "" {
		dir = filepath.Dir(n.Source)
	}
	ext := strings.TrimPrefix(n.Ext, ".")
	base := baseName(n.Source)
	switch {
	case n.Copy:
		base += "-copy"
	case n.Multi:
		base = fmt.Sprintf("%s-%dp", base, int(n.Tier))
	}
	return filepath.Join(dir, base+"."+ext)
}

// PartialPath is where ffmpeg writes before the output is finalised.
func PartialPath(final string) string {
	return final + partialSuffix
}

// IsWorkFile reports whether path is a partial output or a set-aside
// original.
func IsWorkFile(path string) bool {
	return strings.HasSuffix(path, partialSuffix) || strings.HasSuffix(path, originalSuffix)
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Guard tracks a source renamed out of the way of its output.
type Guard struct {
	Source string
	Moved  string
}

// Path is where the source currently lives.
func (g Guard) Path() string {
	if g.Moved != "" {
		return g.Moved
	}
	return g.Source
}

// Restore puts a moved source back. It is a no-op when nothing was moved
// or the original path has been taken since.
func (g Guard) Restore() error {
	if g.Moved == "" {
		return nil
	}
	if _, err := os.Stat(g.Source); err == nil {
		return nil
	}
	return os.Rename(g.Moved, g.Source)
}

// Prepare renames src to "<base>.original" (or "<base>.N.original") when
// finalPath would overwrite it.
func Prepare(src, finalPath string) (Guard, error) {
	guard := Guard{Source: src}
	if filepath.Clean(src) != filepath.Clean(finalPath) {
		return guard, nil
	}
	dir := filepath.Dir(src)
	base := baseName(src)
	candidate := filepath.Join(dir, base+originalSuffix)
	for n := 2; ; n++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			break
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s.%d%s", base, n, originalSuffix))
	}
	if err := os.Rename(src, candidate); err != nil {
		return guard, fmt.Errorf("set original aside: %w", err)
	}
	guard.Moved = candidate
	return guard, nil
}
