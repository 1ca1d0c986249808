package language

// Policy decides which stream languages survive option building. Allowed is
// ordered by preference; an empty Allowed admits every language. Fallback is
// substituted for streams whose language is missing or unrecognized.
type Policy struct {
	Allowed  []string
	Blocked  []string
	Fallback string
}

// NewPolicy normalizes the supplied lists to ISO 639-2 codes.
func NewPolicy(allowed, blocked []string, fallback string) Policy {
	return Policy{
		Allowed:  NormalizeList(allowed),
		Blocked:  NormalizeList(blocked),
		Fallback: Normalize(fallback, Undetermined),
	}
}

// Normalize maps a stream language to its ISO 639-2 code, substituting the
// policy fallback for unknown values.
func (p Policy) Normalize(code string) string {
	return Normalize(code, p.Fallback)
}

// IsAllowed reports (allowed empty OR lang in allowed) AND lang not blocked.
func (p Policy) IsAllowed(lang string) bool {
	if contains(p.Blocked, lang) {
		return false
	}
	return len(p.Allowed) == 0 || contains(p.Allowed, lang)
}

// Rank returns the preference position of lang; unlisted languages sort
// after every listed one.
func (p Policy) Rank(lang string) int {
	for i, allowed := range p.Allowed {
		if allowed == lang {
			return i
		}
	}
	return len(p.Allowed)
}

// Preferred returns the most preferred language, or "" when any is allowed.
func (p Policy) Preferred() string {
	if len(p.Allowed) == 0 {
		return ""
	}
	return p.Allowed[0]
}

// Resolve returns the policy to use for one file whose streams carry langs
// (already normalized). When Allowed is non-empty and none of langs match
// it, the returned copy has Allowed cleared and relaxed is true. The
// receiver is never modified and Blocked is kept as is.
func (p Policy) Resolve(langs []string) (resolved Policy, relaxed bool) {
	resolved = p.clone()
	if len(resolved.Allowed) == 0 {
		return resolved, false
	}
	for _, lang := range langs {
		if contains(resolved.Allowed, lang) {
			return resolved, false
		}
	}
	resolved.Allowed = nil
	return resolved, true
}

func (p Policy) clone() Policy {
	out := Policy{Fallback: p.Fallback}
	if len(p.Allowed) > 0 {
		out.Allowed = append([]string(nil), p.Allowed...)
	}
	if len(p.Blocked) > 0 {
		out.Blocked = append([]string(nil), p.Blocked...)
	}
	return out
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
