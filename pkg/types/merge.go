package types

import "sort"

// Merge collapses the partial enrichment records collected for one hit into
// a single record. It returns nil for an empty input and a copy of the sole
// element for a single-element input.
//
// For multiple records the overlay is deterministic: records are applied in
// ascending Priority order (ties keep input order) and a later record only
// fills fields the accumulator does not have yet. Tags, Artists, Characters
// and Enrichers are unioned across all contributors instead of overlaid, so
// no provider can erase another provider's set entries.
func Merge(parts []Enrichment) *Enrichment {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		out := parts[0]
		return &out
	}

	sorted := make([]Enrichment, len(parts))
	copy(sorted, parts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	acc := sorted[0]
	// Re-slice the set fields so the overlay never mutates an input record.
	acc.Tags = unionStrings(nil, acc.Tags)
	acc.Artists = unionStrings(nil, acc.Artists)
	acc.Characters = unionStrings(nil, acc.Characters)
	acc.Enrichers = unionStrings(nil, acc.Enrichers)

	for _, p := range sorted[1:] {
		overlay(&acc, p)
	}
	return &acc
}

// overlay fills the accumulator's absent fields from p and unions the set
// fields. Present scalar fields are never overwritten.
func overlay(acc *Enrichment, p Enrichment) {
	if acc.Title == nil {
		acc.Title = p.Title
	}
	if acc.Year == 0 {
		acc.Year = p.Year
	}
	if acc.Status == "" {
		acc.Status = p.Status
	}
	if acc.Thumbnail == "" {
		acc.Thumbnail = p.Thumbnail
	}
	if acc.Video == "" {
		acc.Video = p.Video
	}
	if acc.Episodes == nil {
		acc.Episodes = p.Episodes
	}
	if acc.Chapters == nil {
		acc.Chapters = p.Chapters
	}
	if acc.MainLink == nil {
		acc.MainLink = p.MainLink
	}
	if len(acc.Links) == 0 {
		acc.Links = p.Links
	}

	acc.Tags = unionStrings(acc.Tags, p.Tags)
	acc.Artists = unionStrings(acc.Artists, p.Artists)
	acc.Characters = unionStrings(acc.Characters, p.Characters)
	acc.Enrichers = unionStrings(acc.Enrichers, p.Enrichers)
}

// unionStrings appends the elements of b that are not already in a,
// preserving first-seen order. It always returns a fresh slice when
// anything is present so callers never share backing arrays.
func unionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range b {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
