package generator

import (
	"log/slog"
	"strings"

	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/model"
	"github.com/dukerupert/hhsynth/internal/sampling"
)

const (
	maxChildAge       = 17
	parentChildGap    = 14
	grandparentGap    = 28
	mixedRaceRate     = 0.70
	inheritedHispanic = 0.90
)

type teenOccupation struct {
	code  string
	title string
}

var teenOccupations = []teenOccupation{
	{"35-3023", "Fast Food and Counter Workers"},
	{"41-2011", "Cashiers"},
	{"35-3031", "Waiters and Waitresses"},
	{"41-2031", "Retail Salespersons"},
	{"37-2011", "Janitors and Cleaners"},
	{"53-7065", "Stockers and Order Fillers"},
}

// ChildGenerator adds the children of a household.
type ChildGenerator struct {
	logger *slog.Logger
}

func NewChildGenerator(logger *slog.Logger) *ChildGenerator {
	return &ChildGenerator{logger: logger.With("stage", "children")}
}

// Generate returns the children for hh. It returns nil when the pattern has
// no children or there are no adults to anchor ages on. sub is the
// multigenerational arrangement chosen with the adults.
func (g *ChildGenerator) Generate(src *sampling.Source, dists distribution.Set, hh *model.Household, sub model.SubPattern) []*model.Person {
	if !hh.Pattern.HasChildren() {
		return nil
	}
	adults := hh.Adults()
	if len(adults) == 0 {
		return nil
	}

	if hh.Pattern == model.PatternMultigenerational && sub == model.SubPatternNone {
		var ok bool
		if sub, ok = sampleSubPattern(src, dists); !ok {
			fallback(g.logger, "multigenerational_patterns")
			sub = model.SubPatternAdultWithParent
		}
	}

	n := g.count(src, dists, hh, adults, sub)
	if n == 0 {
		return nil
	}

	rels := g.relationships(src, dists, hh.Pattern, sub, n)
	children := make([]*model.Person, 0, n)
	for _, rel := range rels {
		children = append(children, g.child(src, dists, adults, rel))
	}
	return children
}

func (g *ChildGenerator) count(src *sampling.Source, dists distribution.Set, hh *model.Household, adults []*model.Person, sub model.SubPattern) int {
	limits := hh.ExpectedChildren
	n, sampled := 0, false

	if t, ok := dists.Get(distribution.ChildrenByParentAge); ok {
		bracket := parentBracket(t, youngest(adults).Age)
		if row, err := sampling.WeightedSample(src, distribution.Where(t, "parent_age_bracket", bracket)); err == nil {
			n, sampled = sampling.SampleBracket(src, row.String("num_children"), 1)
		}
	}
	if !sampled {
		fallback(g.logger, "children_by_parent_age")
		n = src.IntRange(limits.Min, limits.Max)
	}

	n = clamp(n, limits.Min, limits.Max)
	if hh.Pattern.RequiresChildren() ||
		sub == model.SubPatternGrandparentGrandchildren || sub == model.SubPatternFourGenerations {
		n = max(n, 1)
	}
	return n
}

// parentBracket resolves an adult age to one of the table's parent_age_bracket
// labels, defaulting to the standard census brackets.
func parentBracket(t distribution.Table, age int) string {
	var def string
	switch {
	case age < 25:
		def = "18-24"
	case age < 35:
		def = "25-34"
	case age < 45:
		def = "35-44"
	case age < 55:
		def = "45-54"
	default:
		def = "55+"
	}
	return sampling.FindMatchingBracket(float64(age), t.Distinct("parent_age_bracket"), def)
}

func (g *ChildGenerator) relationships(src *sampling.Source, dists distribution.Set, p model.Pattern, sub model.SubPattern, n int) []model.Relationship {
	rels := make([]model.Relationship, n)
	for i := range rels {
		rels[i] = model.BiologicalChild
	}

	switch p {
	case model.PatternBlendedFamily:
		mix := "mixed"
		if row, err := sampleTable(src, dists, distribution.StepchildPatterns); err == nil {
			mix = strings.ToLower(row.String("pattern"))
		} else {
			fallback(g.logger, "stepchild_patterns")
		}
		switch {
		case strings.Contains(mix, "step_only"):
			fill(rels, model.Stepchild)
		case strings.Contains(mix, "bio_only"):
		default:
			splitMix(src, rels, model.Stepchild)
		}

	case model.PatternMultigenerational:
		switch sub {
		case model.SubPatternGrandparentGrandchildren:
			fill(rels, model.Grandchild)
		case model.SubPatternFourGenerations:
			if n >= 2 {
				splitMix(src, rels, model.Grandchild)
			} else if src.Chance(0.5) {
				rels[0] = model.Grandchild
			}
		}
	}
	return rels
}

func fill(rels []model.Relationship, r model.Relationship) {
	for i := range rels {
		rels[i] = r
	}
}

// splitMix turns max(1, n/2) entries into r and shuffles, leaving at least one
// of each kind when n >= 2.
func splitMix(src *sampling.Source, rels []model.Relationship, r model.Relationship) {
	k := max(1, len(rels)/2)
	for i := 0; i < k; i++ {
		rels[i] = r
	}
	src.Shuffle(len(rels), func(i, j int) { rels[i], rels[j] = rels[j], rels[i] })
}

func (g *ChildGenerator) child(src *sampling.Source, dists distribution.Set, adults []*model.Person, rel model.Relationship) *model.Person {
	ref, gap := youngest(adults), parentChildGap
	if rel == model.Grandchild {
		ref, gap = oldest(adults), grandparentGap
	}

	p := &model.Person{ID: newID(src), Relationship: rel}
	p.Age = g.age(src, dists, ref, gap)
	p.Sex = randomSex(src)
	p.Race = inheritRace(src, adults)
	p.HispanicOrigin = inheritHispanic(src, adults)
	p.Education = childEducation(p.Age)
	p.EmploymentStatus = model.NotInLaborForce
	teenEmployment(src, p)
	return p
}

func (g *ChildGenerator) age(src *sampling.Source, dists distribution.Set, ref *model.Person, gap int) int {
	upper := min(maxChildAge, ref.Age-gap)
	if upper < 0 {
		return 0
	}

	if t, ok := dists.Get(distribution.ChildAgeDistributions); ok {
		bracket := parentBracket(t, ref.Age)
		if row, err := sampling.WeightedSample(src, distribution.Where(t, "parent_age_bracket", bracket)); err == nil {
			if age, ok := sampling.SampleBracket(src, row.String("child_age_group"), sampling.ChildAgeTail); ok {
				return clamp(age, 0, upper)
			}
		}
	}

	fallback(g.logger, "child_age_distributions")
	return src.IntRange(0, upper)
}

func inheritRace(src *sampling.Source, adults []*model.Person) string {
	var races []string
	seen := make(map[string]bool)
	for _, a := range adults {
		if a.Race != "" && !seen[a.Race] {
			seen[a.Race] = true
			races = append(races, a.Race)
		}
	}
	switch len(races) {
	case 0:
		return model.RaceTwoOrMore
	case 1:
		return races[0]
	}
	if src.Chance(mixedRaceRate) {
		return model.RaceTwoOrMore
	}
	return races[src.Intn(len(races))]
}

func inheritHispanic(src *sampling.Source, adults []*model.Person) bool {
	for _, a := range adults {
		if a.HispanicOrigin {
			return src.Chance(inheritedHispanic)
		}
	}
	return false
}

func childEducation(age int) string {
	switch {
	case age < 5:
		return model.NoSchooling
	case age < 6:
		return model.Preschool
	case age < 14:
		return model.ElementaryMiddle
	default:
		return model.HighSchool
	}
}

func teenEmployment(src *sampling.Source, p *model.Person) {
	var rate float64
	switch {
	case p.Age >= 16 && p.Age <= 17:
		rate = 0.35
	case p.Age >= 14 && p.Age <= 15:
		rate = 0.10
	default:
		return
	}
	if !src.Chance(rate) {
		return
	}
	occ := teenOccupations[src.Intn(len(teenOccupations))]
	p.EmploymentStatus = model.Employed
	p.OccupationCode = occ.code
	p.OccupationTitle = occ.title
}
