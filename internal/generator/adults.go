package generator

import (
	"log/slog"
	"strings"

	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/model"
	"github.com/dukerupert/hhsynth/internal/sampling"
)

const (
	minAdultAge      = 18
	maxAdultAge      = 85
	maxParentAge     = 95
	spouseGapSpread  = 5
	partnerGapSpread = 8
	hispanicRate     = 0.18
)

// householderWindow is the valid householder age range for a pattern.
func householderWindow(p model.Pattern) (int, int) {
	switch p {
	case model.PatternSingleParent:
		return 20, 65
	case model.PatternMarriedWithChildren, model.PatternBlendedFamily:
		return 22, 55
	case model.PatternMultigenerational:
		return 30, 75
	default:
		return minAdultAge, maxAdultAge
	}
}

// occupationEducation maps education levels onto the taxonomy of the
// education-to-occupation table.
var occupationEducation = map[string]string{
	model.LessThanHS:   "no_hs_diploma",
	model.HighSchool:   "hs_graduate",
	model.SomeCollege:  "some_college",
	model.Associates:   "associates",
	model.Bachelors:    "bachelors",
	model.Masters:      "masters",
	model.Professional: "professional_doctorate",
	model.Doctorate:    "professional_doctorate",
}

// educationAliases normalizes labels used by the demographic extracts.
var educationAliases = map[string]string{
	"no_hs_diploma":          model.LessThanHS,
	"hs_graduate":            model.HighSchool,
	"professional_doctorate": model.Doctorate,
}

// AdultResult is the output of the adult stage.
type AdultResult struct {
	Adults     []*model.Person
	SubPattern model.SubPattern
}

// AdultGenerator builds the adults of a household, householder first.
type AdultGenerator struct {
	logger *slog.Logger
}

func NewAdultGenerator(logger *slog.Logger) *AdultGenerator {
	return &AdultGenerator{logger: logger.With("stage", "adults")}
}

// adultBuild carries state between the adults of one household.
type adultBuild struct {
	src    *sampling.Source
	dists  distribution.Set
	hh     *model.Household
	adults []*model.Person
	// couple holds the sexes from a jointly sampled couple pattern.
	couple []model.Sex
}

// Generate returns the adults for hh in relationship order.
func (g *AdultGenerator) Generate(src *sampling.Source, dists distribution.Set, hh *model.Household) AdultResult {
	meta := hh.Pattern.Meta()
	n := meta.Adults.Min
	if meta.Adults.Max > meta.Adults.Min {
		n = src.IntRange(meta.Adults.Min, meta.Adults.Max)
	}

	rels, sub := g.relationships(src, dists, hh.Pattern, n)
	b := &adultBuild{src: src, dists: dists, hh: hh}
	for _, rel := range rels {
		b.adults = append(b.adults, g.person(b, rel))
	}
	return AdultResult{Adults: b.adults, SubPattern: sub}
}

func (g *AdultGenerator) relationships(src *sampling.Source, dists distribution.Set, p model.Pattern, n int) ([]model.Relationship, model.SubPattern) {
	rels := []model.Relationship{model.Householder}
	sub := model.SubPatternNone

	switch p {
	case model.PatternMarriedNoChildren, model.PatternMarriedWithChildren, model.PatternBlendedFamily:
		rels = append(rels, model.Spouse)
	case model.PatternUnmarriedPartners:
		rels = append(rels, model.UnmarriedPartner)
	case model.PatternMultigenerational:
		var ok bool
		sub, ok = sampleSubPattern(src, dists)
		if !ok {
			fallback(g.logger, "multigenerational_patterns")
			sub = model.SubPatternAdultWithParent
			for i := 1; i < n; i++ {
				rels = append(rels, model.Parent)
			}
			break
		}
		switch sub {
		case model.SubPatternGrandparentGrandchildren:
			if n >= 2 {
				rels = append(rels, model.Spouse)
			}
		case model.SubPatternAdultWithParent, model.SubPatternFourGenerations:
			rels = append(rels, model.Parent)
			if n >= 3 {
				rels = append(rels, model.Spouse)
			}
		}
	case model.PatternOther:
		for i := 1; i < n; i++ {
			rels = append(rels, model.OtherRelative)
		}
	}

	if len(rels) > n {
		rels = rels[:n]
	}
	return rels, sub
}

// sampleSubPattern draws a known multigenerational arrangement.
func sampleSubPattern(src *sampling.Source, dists distribution.Set) (model.SubPattern, bool) {
	t, ok := dists.Get(distribution.MultigenerationalPatterns)
	if !ok {
		return model.SubPatternNone, false
	}
	known := t.Filter(func(r distribution.Row) bool {
		_, ok := model.ParseSubPattern(r.String("pattern"))
		return ok
	})
	row, err := sampling.WeightedSample(src, known)
	if err != nil {
		return model.SubPatternNone, false
	}
	sub, _ := model.ParseSubPattern(row.String("pattern"))
	return sub, true
}

func (g *AdultGenerator) person(b *adultBuild, rel model.Relationship) *model.Person {
	p := &model.Person{ID: newID(b.src), Relationship: rel}
	p.Age = g.age(b, rel)
	p.Sex = g.sex(b, rel)
	p.Race = g.race(b.src, b.dists, p.Age)
	p.HispanicOrigin = g.hispanic(b.src, b.dists, p.Age)
	p.EmploymentStatus = g.employment(b.src, b.dists, p.Age, p.Sex)
	p.Education = g.education(b.src, b.dists, p.Age)
	p.HasDisability = g.disability(b.src, b.dists, p.Age)
	if p.IsEmployed() {
		g.occupation(b.src, b.dists, p)
	}
	return p
}

func (g *AdultGenerator) age(b *adultBuild, rel model.Relationship) int {
	var householder *model.Person
	if len(b.adults) > 0 {
		householder = b.adults[0]
	}

	switch rel {
	case model.Householder:
		lo, hi := householderWindow(b.hh.Pattern)
		if age, ok := g.ageFromEmployment(b.src, b.dists, lo, hi); ok {
			return age
		}
		fallback(g.logger, "householder_age")
		return b.src.IntRange(lo, hi)

	case model.Spouse, model.UnmarriedPartner:
		if householder == nil {
			return g.generalAge(b.src, b.dists)
		}
		var gap int
		if row, err := sampleTable(b.src, b.dists, distribution.SpousalAgeGaps); err == nil {
			gap = sampling.SampleGap(b.src, row.String("age_gap_bracket"))
		} else {
			fallback(g.logger, "spousal_age_gaps")
			spread := spouseGapSpread
			if rel == model.UnmarriedPartner {
				spread = partnerGapSpread
			}
			gap = b.src.IntRange(-spread, spread)
		}
		return clamp(householder.Age-gap, minAdultAge, maxAdultAge)

	case model.Parent:
		if householder == nil {
			return b.src.IntRange(55, 84)
		}
		return min(householder.Age+b.src.IntRange(18, 40), maxParentAge)

	default:
		return g.generalAge(b.src, b.dists)
	}
}

// ageFromEmployment draws an age from the employment_by_age brackets that
// overlap [lo, hi], weighting each bracket by its summed population.
func (g *AdultGenerator) ageFromEmployment(src *sampling.Source, dists distribution.Set, lo, hi int) (int, bool) {
	t, ok := dists.Get(distribution.EmploymentByAge)
	if !ok {
		return 0, false
	}

	var brackets []string
	var weights []float64
	index := make(map[string]int)
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		bracket := r.String("age_bracket")
		if bracket == "" || !sampling.BracketOverlaps(bracket, float64(lo), float64(hi)) {
			continue
		}
		w, _ := r.Float(t.WeightField())
		j, seen := index[bracket]
		if !seen {
			j = len(brackets)
			index[bracket] = j
			brackets = append(brackets, bracket)
			weights = append(weights, 0)
		}
		if w > 0 {
			weights[j] += w
		}
	}

	i, err := sampling.WeightedIndex(src, weights)
	if err != nil {
		return 0, false
	}
	age, _ := sampling.SampleBracket(src, brackets[i], sampling.AgeTail)
	return clamp(age, lo, hi), true
}

func (g *AdultGenerator) generalAge(src *sampling.Source, dists distribution.Set) int {
	if age, ok := g.ageFromEmployment(src, dists, minAdultAge, maxAdultAge); ok {
		return age
	}
	fallback(g.logger, "adult_age")
	return src.IntRange(minAdultAge, 69)
}

func (g *AdultGenerator) sex(b *adultBuild, rel model.Relationship) model.Sex {
	coupleType := b.hh.Pattern.CoupleType()

	switch rel {
	case model.Householder:
		if coupleType != "" {
			if pair, ok := sampleCoupleSexes(b.src, b.dists, coupleType, ""); ok {
				b.couple = pair
				return pair[0]
			}
			fallback(g.logger, "couple_sex_patterns")
		}
		return randomSex(b.src)

	case model.Spouse, model.UnmarriedPartner:
		if b.couple != nil {
			return b.couple[1]
		}
		if len(b.adults) == 0 {
			return randomSex(b.src)
		}
		householder := b.adults[0]
		if coupleType == "" {
			coupleType = "married"
			if rel == model.UnmarriedPartner {
				coupleType = "unmarried"
			}
		}
		if pair, ok := sampleCoupleSexes(b.src, b.dists, coupleType, householder.Sex); ok {
			return pair[1]
		}
		return householder.Sex.Opposite()

	default:
		return randomSex(b.src)
	}
}

// sampleCoupleSexes draws a "M_F" style pattern for coupleType, optionally
// restricted to patterns whose first sex is first.
func sampleCoupleSexes(src *sampling.Source, dists distribution.Set, coupleType string, first model.Sex) ([]model.Sex, bool) {
	t, ok := dists.Get(distribution.CoupleSexPatterns)
	if !ok {
		return nil, false
	}
	rows := t.Filter(func(r distribution.Row) bool {
		if !strings.EqualFold(r.String("couple_type"), coupleType) {
			return false
		}
		pair, ok := parseSexPair(r.String("sex_pattern"))
		return ok && (first == "" || pair[0] == first)
	})
	row, err := sampling.WeightedSample(src, rows)
	if err != nil {
		return nil, false
	}
	pair, _ := parseSexPair(row.String("sex_pattern"))
	return pair, true
}

func parseSexPair(s string) ([]model.Sex, bool) {
	a, b, ok := strings.Cut(s, "_")
	if !ok {
		return nil, false
	}
	first, ok1 := model.ParseSex(a)
	second, ok2 := model.ParseSex(b)
	if !ok1 || !ok2 {
		return nil, false
	}
	return []model.Sex{first, second}, true
}

func randomSex(src *sampling.Source) model.Sex {
	if src.Chance(0.5) {
		return model.Male
	}
	return model.Female
}

func (g *AdultGenerator) race(src *sampling.Source, dists distribution.Set, age int) string {
	if row, ok := sampleIn(src, dists, distribution.RaceByAge, "age_bracket", age); ok && row.Has("race") {
		return strings.ToLower(row.String("race"))
	}
	if row, err := sampleTable(src, dists, distribution.RaceDistribution); err == nil && row.Has("race") {
		return strings.ToLower(row.String("race"))
	}
	fallback(g.logger, "race")
	return model.RaceWhite
}

func (g *AdultGenerator) hispanic(src *sampling.Source, dists distribution.Set, age int) bool {
	if row, ok := sampleIn(src, dists, distribution.HispanicOriginByAge, "age_bracket", age); ok {
		switch strings.ToLower(row.String("hispanic_origin")) {
		case "hispanic", "true", "yes", "1":
			return true
		}
		return false
	}
	fallback(g.logger, "hispanic_origin_by_age")
	return src.Chance(hispanicRate)
}

func (g *AdultGenerator) employment(src *sampling.Source, dists distribution.Set, age int, sex model.Sex) model.EmploymentStatus {
	if t, ok := dists.Get(distribution.EmploymentByAge); ok {
		if rows, ok := bracketRows(t, "age_bracket", age); ok {
			rows = distribution.Where(rows, "sex", sex.Word())
			if row, err := sampling.WeightedSample(src, rows); err == nil {
				if status, ok := model.ParseEmploymentStatus(row.String("employment_status")); ok {
					return status
				}
			}
		}
	}

	fallback(g.logger, "employment_by_age")
	statuses := []model.EmploymentStatus{model.Employed, model.Unemployed, model.NotInLaborForce}
	switch {
	case age >= 65:
		return sampling.Choose(src, statuses, []float64{0.25, 0, 0.75})
	case age < 22:
		return sampling.Choose(src, statuses, []float64{0.50, 0.10, 0.40})
	default:
		return sampling.Choose(src, statuses, []float64{0.75, 0.05, 0.20})
	}
}

func (g *AdultGenerator) education(src *sampling.Source, dists distribution.Set, age int) string {
	if row, ok := sampleIn(src, dists, distribution.EducationByAge, "age_bracket", age); ok && row.Has("education_level") {
		return normalizeEducation(row.String("education_level"))
	}

	fallback(g.logger, "education_by_age")
	if age < 22 {
		return sampling.Choose(src, []string{model.HighSchool, model.SomeCollege}, []float64{0.6, 0.4})
	}
	return sampling.Choose(src,
		[]string{model.HighSchool, model.SomeCollege, model.Bachelors, model.Associates, model.Masters},
		[]float64{0.30, 0.25, 0.25, 0.10, 0.10})
}

func normalizeEducation(s string) string {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	if alias, ok := educationAliases[s]; ok {
		return alias
	}
	return s
}

func (g *AdultGenerator) disability(src *sampling.Source, dists distribution.Set, age int) bool {
	if row, ok := firstIn(dists, distribution.DisabilityByAge, "age_bracket", age); ok {
		if pct, ok := row.Float("disability_percentage"); ok {
			return src.Chance(pct / 100)
		}
	}

	fallback(g.logger, "disability_by_age")
	switch {
	case age < 35:
		return src.Chance(0.05)
	case age < 55:
		return src.Chance(0.10)
	case age < 65:
		return src.Chance(0.20)
	default:
		return src.Chance(0.35)
	}
}

// occupation assigns a SOC code: major group by education, then a specific
// occupation in that group by employment count.
func (g *AdultGenerator) occupation(src *sampling.Source, dists distribution.Set, p *model.Person) {
	wages, ok := dists.Get(distribution.OccupationWages)
	if !ok {
		return
	}

	if probs, ok := dists.Get(distribution.EducationOccupation); ok {
		level, known := occupationEducation[p.Education]
		if !known {
			level = "hs_graduate"
		}
		if row, err := sampling.WeightedSample(src, distribution.Where(probs, "education_level", level)); err == nil {
			group := majorGroupLabel(row.String("soc_major_group"))
			inGroup := wages.Filter(func(r distribution.Row) bool {
				return model.SOCMajorGroup(r.String("soc_code")) == group
			})
			if occ, err := sampling.WeightedSample(src, inGroup); err == nil {
				assignOccupation(p, occ)
				return
			}
		}
	}

	fallback(g.logger, "education_occupation_probabilities")
	if occ, err := sampling.WeightedSample(src, wages); err == nil {
		assignOccupation(p, occ)
	}
}

// majorGroupLabel accepts "29", "29-0000" or "9" and returns the two-digit group.
func majorGroupLabel(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		return "0" + s
	}
	return model.SOCMajorGroup(s)
}

func assignOccupation(p *model.Person, row distribution.Row) {
	p.OccupationCode = row.String("soc_code")
	p.OccupationTitle = row.String("occupation_title")
}

// sampleTable draws a weighted row from a whole table.
func sampleTable(src *sampling.Source, dists distribution.Set, name string) (distribution.Row, error) {
	t, ok := dists.Get(name)
	if !ok {
		return nil, sampling.ErrEmptyTable
	}
	return sampling.WeightedSample(src, t)
}
