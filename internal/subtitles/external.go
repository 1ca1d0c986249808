package subtitles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mmt/internal/language"
	"mmt/internal/media/stream"
)

// External is a subtitle sidecar found next to a source file.
type External struct {
	Path        string
	Language    string
	Disposition stream.Disposition
}

var sidecarExtensions = map[string]struct{}{
	"srt": {}, "ass": {}, "ssa": {}, "vtt": {}, "sub": {}, "idx": {}, "sup": {},
}

// IsSidecarExtension reports whether ext (with or without the dot) names a
// subtitle sidecar format.
func IsSidecarExtension(ext string) bool {
	_, ok := sidecarExtensions[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

// Discover lists subtitle files in the source's directory whose names
// start with the source base name followed by a dot. Dotted tokens between
// the base name and the extension are read right to left: disposition
// words set flags and the first recognised language wins. Files without a
// language token get fallback.
func Discover(source, fallback string) ([]External, error) {
	dir := filepath.Dir(source)
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}
	names := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		names[entry.Name()] = struct{}{}
	}

	var found []External
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == filepath.Base(source) {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		if !IsSidecarExtension(ext) || !strings.HasPrefix(name, base+".") {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.EqualFold(ext, "sub") {
			if _, ok := names[stem+".idx"]; ok {
				continue
			}
		}
		tokens := strings.TrimPrefix(stem, base)
		lang, dispo := parseTokens(strings.Split(strings.Trim(tokens, "."), "."))
		if lang == "" {
			lang = language.Normalize(fallback, language.Undetermined)
		}
		found = append(found, External{
			Path:        filepath.Join(dir, name),
			Language:    lang,
			Disposition: dispo,
		})
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

func parseTokens(tokens []string) (string, stream.Disposition) {
	var (
		lang  string
		dispo stream.Disposition
	)
	for i := len(tokens) - 1; i >= 0; i-- {
		token := strings.ToLower(strings.TrimSpace(tokens[i]))
		switch token {
		case "":
			continue
		case "forced":
			dispo.Forced = true
			continue
		case "sdh", "hi", "cc":
			dispo.HearingImpaired = true
			continue
		case "commentary":
			dispo.Comment = true
			continue
		case "default":
			dispo.Default = true
			continue
		case "dub":
			dispo.Dub = true
			continue
		}
		if lang != "" {
			continue
		}
		if language.IsValid(token) {
			lang = language.ToISO3(token)
		}
	}
	return lang, dispo
}
