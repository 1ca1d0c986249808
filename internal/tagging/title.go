package tagging

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const unknownTitle = "Unknown Title"

var yearPattern = regexp.MustCompile(`[\s._\-(\[]((?:19|20)\d{2})(?:[\s._\-)\]]|$)`)

// ParseName derives a display title and release year from a media file
// name. The year is the last 19xx/20xx token that follows a separator;
// anything after it (resolution, release group) is dropped.
func ParseName(path string) (string, int) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	year := 0
	if matches := yearPattern.FindAllStringSubmatchIndex(base, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		if head := strings.TrimSpace(base[:last[0]]); head != "" {
			year, _ = strconv.Atoi(base[last[2]:last[3]])
			base = head
		}
	}
	return cleanTitle(base), year
}

// TitleFromPath returns the display title ParseName derives.
func TitleFromPath(path string) string {
	title, _ := ParseName(path)
	return title
}

func cleanTitle(raw string) string {
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range raw {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '\'' || r == '&':
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return unknownTitle
	}
	return cases.Title(language.Und).String(title)
}
