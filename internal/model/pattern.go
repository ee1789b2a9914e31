package model

import "strings"

type Pattern string

const (
	PatternMarriedNoChildren   Pattern = "married_couple_no_children"
	PatternMarriedWithChildren Pattern = "married_couple_with_children"
	PatternSingleParent        Pattern = "single_parent"
	PatternSingleAdult         Pattern = "single_adult"
	PatternBlendedFamily       Pattern = "blended_family"
	PatternMultigenerational   Pattern = "multigenerational"
	PatternUnmarriedPartners   Pattern = "unmarried_partners"
	PatternOther               Pattern = "other"
)

var patternAliases = map[string]Pattern{
	"single_person":     PatternSingleAdult,
	"unmarried_partner": PatternUnmarriedPartners,
}

// Patterns returns every household pattern.
func Patterns() []Pattern {
	return []Pattern{
		PatternMarriedNoChildren,
		PatternMarriedWithChildren,
		PatternSingleParent,
		PatternSingleAdult,
		PatternBlendedFamily,
		PatternMultigenerational,
		PatternUnmarriedPartners,
		PatternOther,
	}
}

// ParsePattern resolves a pattern name, including the aliases found in
// extracted data.
func ParsePattern(s string) (Pattern, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if p, ok := patternAliases[s]; ok {
		return p, true
	}
	for _, p := range Patterns() {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

func ParseComplexity(s string) (Complexity, bool) {
	switch c := Complexity(strings.ToLower(strings.TrimSpace(s))); c {
	case ComplexitySimple, ComplexityMedium, ComplexityComplex:
		return c, true
	}
	return "", false
}

type SubPattern string

const (
	SubPatternNone                     SubPattern = ""
	SubPatternGrandparentGrandchildren SubPattern = "grandparent_with_grandchildren"
	SubPatternAdultWithParent          SubPattern = "adult_with_parent"
	SubPatternFourGenerations          SubPattern = "four_generations"
)

func ParseSubPattern(s string) (SubPattern, bool) {
	switch sp := SubPattern(strings.ToLower(strings.TrimSpace(s))); sp {
	case SubPatternGrandparentGrandchildren, SubPatternAdultWithParent, SubPatternFourGenerations:
		return sp, true
	}
	return SubPatternNone, false
}

// CountRange is an inclusive member-count range.
type CountRange struct {
	Min int
	Max int
}

func (r CountRange) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// PatternMeta is the static description of a household pattern.
type PatternMeta struct {
	Adults        CountRange
	Children      CountRange
	Complexity    Complexity
	Description   string
	Relationships []Relationship
}

var patternMeta = map[Pattern]PatternMeta{
	PatternMarriedNoChildren: {
		Adults: CountRange{2, 2}, Children: CountRange{0, 0}, Complexity: ComplexitySimple,
		Description:   "Married couple without children",
		Relationships: []Relationship{Householder, Spouse},
	},
	PatternMarriedWithChildren: {
		Adults: CountRange{2, 2}, Children: CountRange{1, 5}, Complexity: ComplexitySimple,
		Description:   "Married couple with children",
		Relationships: []Relationship{Householder, Spouse},
	},
	PatternSingleParent: {
		Adults: CountRange{1, 1}, Children: CountRange{1, 4}, Complexity: ComplexitySimple,
		Description:   "Single parent with children",
		Relationships: []Relationship{Householder},
	},
	PatternSingleAdult: {
		Adults: CountRange{1, 1}, Children: CountRange{0, 0}, Complexity: ComplexitySimple,
		Description:   "Single person living alone",
		Relationships: []Relationship{Householder},
	},
	PatternBlendedFamily: {
		Adults: CountRange{2, 2}, Children: CountRange{2, 5}, Complexity: ComplexityComplex,
		Description:   "Married couple with bio and/or stepchildren",
		Relationships: []Relationship{Householder, Spouse},
	},
	PatternMultigenerational: {
		Adults: CountRange{2, 4}, Children: CountRange{0, 3}, Complexity: ComplexityComplex,
		Description:   "3+ generations in household",
		Relationships: []Relationship{Householder},
	},
	PatternUnmarriedPartners: {
		Adults: CountRange{2, 2}, Children: CountRange{0, 3}, Complexity: ComplexityComplex,
		Description:   "Cohabiting couple (not married)",
		Relationships: []Relationship{Householder, UnmarriedPartner},
	},
	PatternOther: {
		Adults: CountRange{1, 5}, Children: CountRange{0, 3}, Complexity: ComplexityMedium,
		Description:   "Other household arrangement",
		Relationships: []Relationship{Householder},
	},
}

// Meta returns the static metadata for p. Unknown patterns get the metadata of PatternOther.
func (p Pattern) Meta() PatternMeta {
	if m, ok := patternMeta[p]; ok {
		return m
	}
	return patternMeta[PatternOther]
}

// HasChildren reports whether the children stage may add children for p.
func (p Pattern) HasChildren() bool {
	switch p {
	case PatternMarriedWithChildren, PatternSingleParent, PatternBlendedFamily,
		PatternMultigenerational, PatternUnmarriedPartners:
		return true
	}
	return false
}

// RequiresChildren reports whether p needs at least one child.
func (p Pattern) RequiresChildren() bool {
	switch p {
	case PatternMarriedWithChildren, PatternSingleParent, PatternBlendedFamily:
		return true
	}
	return false
}

// CoupleType returns "married" or "unmarried" for couple-based patterns and "" otherwise.
func (p Pattern) CoupleType() string {
	switch p {
	case PatternMarriedNoChildren, PatternMarriedWithChildren, PatternBlendedFamily:
		return "married"
	case PatternUnmarriedPartners:
		return "unmarried"
	}
	return ""
}

// FilesJointly reports whether the householder couple files a joint return.
func (p Pattern) FilesJointly() bool {
	return p.CoupleType() == "married"
}
