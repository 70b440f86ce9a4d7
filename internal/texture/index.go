package texture

import (
	"path"
	"strings"
)

// Tier says which matching rule resolved a texture reference.
type Tier int

const (
	TierNone      Tier = iota // unresolved, a soft condition
	TierExact                 // case-insensitive name equality
	TierSubstring             // one stem contains the other, case preserved
	TierBaseName              // stems equal after folding case and role suffixes
	TierKeyword               // candidate carries a generic material-image keyword
	TierFallback              // no reference given; first candidate used
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierSubstring:
		return "substring"
	case TierBaseName:
		return "basename"
	case TierKeyword:
		return "keyword"
	case TierFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Match is the outcome of resolving one reference.
type Match struct {
	Name string // candidate name as it appeared in the archive
	Tier Tier
}

// Found reports whether a candidate was chosen.
func (m Match) Found() bool {
	return m.Tier != TierNone
}

// Keywords mark a file as a plausible colour map when nothing else matches.
var Keywords = []string{"material", "diffuse", "albedo", "basecolor", "color", "colour"}

// roleSuffixes are stripped before base-name comparison ("wood_diffuse" → "wood").
var roleSuffixes = []string{
	"basecolor", "base_color", "diffuse", "albedo", "colour", "color", "diff", "col", "d",
}

type entry struct {
	name  string // as in the archive
	base  string // file name, original case
	stem  string // file name without extension, original case
	lower string // base, lower case
}

// Index holds texture candidate names in archive order.
type Index struct {
	entries []entry
}

// BuildIndex indexes texture candidate names.
func BuildIndex(names []string) *Index {
	idx := &Index{entries: make([]entry, 0, len(names))}
	for _, n := range names {
		base := baseName(n)
		idx.entries = append(idx.entries, entry{
			name:  n,
			base:  base,
			stem:  strings.TrimSuffix(base, path.Ext(base)),
			lower: strings.ToLower(base),
		})
	}
	return idx
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Resolve matches a material's texture reference against the candidates.
// Tiers are tried in order and the first candidate satisfying a tier wins.
func (idx *Index) Resolve(ref string) Match {
	ref = strings.TrimSpace(ref)
	if ref == "" || len(idx.entries) == 0 {
		return Match{}
	}
	refBase := baseName(ref)
	refLower := strings.ToLower(refBase)
	refStem := strings.TrimSuffix(refBase, path.Ext(refBase))
	refFull := strings.ToLower(strings.ReplaceAll(ref, "\\", "/"))

	for _, e := range idx.entries {
		if e.lower == refLower || strings.ToLower(e.name) == refFull {
			return Match{Name: e.name, Tier: TierExact}
		}
	}

	if refStem != "" {
		for _, e := range idx.entries {
			if e.stem == "" {
				continue
			}
			if strings.Contains(e.stem, refStem) || strings.Contains(refStem, e.stem) {
				return Match{Name: e.name, Tier: TierSubstring}
			}
		}
	}

	refKey := foldStem(refStem)
	if refKey != "" {
		for _, e := range idx.entries {
			if foldStem(e.stem) == refKey {
				return Match{Name: e.name, Tier: TierBaseName}
			}
		}
	}

	for _, e := range idx.entries {
		for _, kw := range Keywords {
			if strings.Contains(e.lower, kw) {
				return Match{Name: e.name, Tier: TierKeyword}
			}
		}
	}

	return Match{}
}

// ResolveDefault picks a texture when there is no reference at all.
func (idx *Index) ResolveDefault() Match {
	if len(idx.entries) == 0 {
		return Match{}
	}
	return Match{Name: idx.entries[0].name, Tier: TierFallback}
}

// baseName strips any directory prefix, accepting both slash styles.
func baseName(p string) string {
	return path.Base(strings.ReplaceAll(p, "\\", "/"))
}

// foldStem lower-cases a stem and strips one trailing texture-role suffix.
func foldStem(stem string) string {
	s := strings.ToLower(stem)
	for _, suf := range roleSuffixes {
		for _, sep := range []string{"_", "-", " ", "."} {
			if strings.HasSuffix(s, sep+suf) && len(s) > len(sep+suf) {
				return strings.TrimSuffix(s, sep+suf)
			}
		}
	}
	return s
}
