package transcode

import "sort"

// ElectAudioDefault leaves exactly one entry with the default flag and
// returns its position, or -1 when entries is empty.
//
// Candidates are ranked by channel count descending with commentary last.
// A pre-existing default in the preferred language wins (the first one
// when several exist). Otherwise the first preferred-language entry, then
// the first flagged entry, then the best-ranked entry overall is chosen.
// An empty preferred language matches every entry.
func ElectAudioDefault(entries []AudioEntry, preferred string) int {
	if len(entries) == 0 {
		return -1
	}
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := entries[order[i]], entries[order[j]]
		if a.Disposition.Comment != b.Disposition.Comment {
			return !a.Disposition.Comment
		}
		return a.Channels > b.Channels
	})

	matches := func(lang string) bool { return preferred == "" || lang == preferred }
	var inPreferred, flagged, flaggedPreferred []int
	for _, idx := range order {
		entry := entries[idx]
		if matches(entry.Language) {
			inPreferred = append(inPreferred, idx)
		}
		if entry.Disposition.Default {
			flagged = append(flagged, idx)
			if matches(entry.Language) {
				flaggedPreferred = append(flaggedPreferred, idx)
			}
		}
	}

	chosen := order[0]
	switch {
	case len(flaggedPreferred) > 0:
		chosen = flaggedPreferred[0]
	case len(inPreferred) > 0:
		chosen = inPreferred[0]
	case len(flagged) > 0:
		chosen = flagged[0]
	}
	for i := range entries {
		entries[i].Disposition.Default = i == chosen
	}
	return chosen
}

// ElectSubtitleDefault leaves at most one entry with the default flag and
// returns its position or -1. An existing default is kept (the first when
// several exist); otherwise the first entry in the preferred language is
// elected. No election happens without a preferred language.
func ElectSubtitleDefault(entries []SubtitleEntry, preferred string) int {
	chosen := -1
	for i := range entries {
		if entries[i].Disposition.Default {
			if chosen < 0 {
				chosen = i
				continue
			}
			entries[i].Disposition.Default = false
		}
	}
	if chosen >= 0 || preferred == "" {
		return chosen
	}
	for i := range entries {
		if entries[i].Language == preferred {
			entries[i].Disposition.Default = true
			return i
		}
	}
	return -1
}
