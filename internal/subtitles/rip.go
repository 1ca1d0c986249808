package subtitles

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var codecExtensions = map[string]string{
	"srt":               "srt",
	"subrip":            "srt",
	"mov_text":          "srt",
	"text":              "srt",
	"ass":               "ass",
	"ssa":               "ssa",
	"webvtt":            "vtt",
	"hdmv_pgs_subtitle": "sup",
	"pgssub":            "sup",
}

// Extension returns the sidecar extension for a subtitle codec, or "" when
// the codec cannot be written to a standalone file.
func Extension(codec string) string {
	return codecExtensions[strings.ToLower(codec)]
}

// RipPath returns a free sidecar path `<base>.<lang>[.forced].<ext>` in
// dir, numbering collisions `.2`, `.3`, and so on before the extension.
func RipPath(source, dir, lang string, forced bool, ext string) string {
	if dir == "" {
		dir = filepath.Dir(source)
	}
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	stem := base + "." + lang
	if forced {
		stem += ".forced"
	}
	candidate := filepath.Join(dir, stem+"."+ext)
	for i := 2; exists(candidate); i++ {
		candidate = filepath.Join(dir, stem+"."+strconv.Itoa(i)+"."+ext)
	}
	return candidate
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
