package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Undetermined is the ISO 639-2 code for an unknown language.
const Undetermined = "und"

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2/B alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish", "espanol"}},
	{"fr", "fra", "fre", "French", []string{"french", "francais"}},
	{"de", "deu", "ger", "German", []string{"german", "deutsch"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"sv", "swe", "", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "Danish", []string{"danish"}},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "Finnish", []string{"finnish"}},
	{"cs", "ces", "cze", "Czech", []string{"czech"}},
	{"el", "ell", "gre", "Greek", []string{"greek"}},
	{"he", "heb", "", "Hebrew", []string{"hebrew"}},
	{"hu", "hun", "", "Hungarian", []string{"hungarian"}},
	{"tr", "tur", "", "Turkish", []string{"turkish"}},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func clean(code string) string {
	code = strings.ReplaceAll(code, "\u0000", "")
	return strings.ToLower(strings.TrimSpace(code))
}

func lookup(code string) *entry {
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// parseBase resolves codes outside the local table (other ISO 639 codes and
// BCP 47 tags such as "pt-BR") through x/text.
func parseBase(code string) (xlanguage.Base, bool) {
	if code == Undetermined {
		return xlanguage.Base{}, false
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		base, baseErr := xlanguage.ParseBase(code)
		if baseErr != nil {
			return xlanguage.Base{}, false
		}
		return base, base.String() != Undetermined
	}
	base, confidence := tag.Base()
	if confidence != xlanguage.Exact || base.String() == Undetermined {
		return xlanguage.Base{}, false
	}
	return base, true
}

// ToISO3 converts any recognized language code, tag, or English word to
// ISO 639-2 (3-letter). Returns "und" for unrecognized input.
func ToISO3(code string) string {
	code = clean(code)
	if code == "" {
		return Undetermined
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if base, ok := parseBase(code); ok {
		if iso3 := base.ISO3(); iso3 != "" {
			if e := lookup(iso3); e != nil {
				return e.code3
			}
			return iso3
		}
	}
	return Undetermined
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns empty string for unrecognized input or languages without a
// 2-letter code.
func ToISO2(code string) string {
	code = clean(code)
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if base, ok := parseBase(code); ok {
		if s := base.String(); len(s) == 2 {
			return s
		}
	}
	return ""
}

// IsValid reports whether code names a real language (not "und").
func IsValid(code string) bool {
	return ToISO3(code) != Undetermined
}

// Normalize returns the ISO 639-2 code for code, or fallback when code is
// empty, undetermined, or unrecognized. An invalid fallback yields "und".
func Normalize(code, fallback string) string {
	if iso := ToISO3(code); iso != Undetermined {
		return iso
	}
	return ToISO3(fallback)
}

// DisplayName returns a human-readable English language name for any
// recognized code. Returns "Unknown" for empty or undetermined input, or the
// uppercased code when nothing matches.
func DisplayName(code string) string {
	cleaned := clean(code)
	if cleaned == "" || cleaned == Undetermined {
		return "Unknown"
	}
	if e := lookup(cleaned); e != nil {
		return e.display
	}
	if base, ok := parseBase(cleaned); ok {
		if name := display.English.Languages().Name(base); name != "" {
			return name
		}
	}
	return strings.ToUpper(cleaned)
}

// ExtractFromTags extracts the raw language value from stream metadata tags.
// Checks common tag keys: language, LANGUAGE, Language, language_ietf, lang, LANG.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"}
	for _, key := range keys {
		if value, ok := tags[key]; ok {
			if value = clean(value); value != "" {
				return value
			}
		}
	}
	return ""
}

// NormalizeList converts a list of language codes to deduplicated ISO 639-2
// codes, preserving order and dropping anything unrecognized.
func NormalizeList(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		iso := ToISO3(code)
		if iso == Undetermined {
			continue
		}
		if _, ok := seen[iso]; ok {
			continue
		}
		seen[iso] = struct{}{}
		normalized = append(normalized, iso)
	}
	return normalized
}
