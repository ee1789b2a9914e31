package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/model"
	"github.com/dukerupert/hhsynth/internal/sampling"
)

// build runs the stages directly for a forced pattern.
func build(t *testing.T, seed int64, dists distribution.Set, pattern model.Pattern) *model.Household {
	t.Helper()
	p := New(distribution.NewStatic(), discardLogger())
	hh, err := p.GenerateWith(t.Context(), sampling.NewSource(seed), dists, StructureOptions{Region: "HI", Period: "2023", Pattern: pattern})
	require.NoError(t, err)
	return hh
}

func TestSingleAdultWithMinimalData(t *testing.T) {
	dists := onlyPatterns(map[string]string{"single_person": "1"})
	hh := build(t, 42, dists, "")

	require.Equal(t, model.PatternSingleAdult, hh.Pattern)
	require.Len(t, hh.Members, 1)
	p := hh.Members[0]
	assert.Equal(t, model.Householder, p.Relationship)
	assert.GreaterOrEqual(t, p.Age, 18)
	assert.LessOrEqual(t, p.Age, 85)
	assert.Zero(t, hh.ChildCount())
	assert.LessOrEqual(t, p.WageIncome, wageCap)
	assert.LessOrEqual(t, p.SocialSecurityIncome, socialSecurityCap)
	assert.LessOrEqual(t, p.PublicAssistanceIncome, publicAssistanceCap)
}

func TestMarriedCoupleSpouseAge(t *testing.T) {
	dists := fullDists()
	dists[distribution.SpousalAgeGaps] = table(distribution.SpousalAgeGaps,
		distribution.Row{"age_gap_bracket": "0", "weight": "1"})

	for seed := int64(0); seed < 30; seed++ {
		hh := build(t, seed, dists, model.PatternMarriedNoChildren)
		require.Len(t, hh.Members, 2)
		assert.Equal(t, model.Householder, hh.Members[0].Relationship)
		assert.Equal(t, model.Spouse, hh.Members[1].Relationship)
		assert.Equal(t, hh.Members[0].Age, hh.Members[1].Age)
		assert.True(t, hh.IsMarried())
	}
}

func TestCoupleSexPattern(t *testing.T) {
	dists := fullDists()
	dists[distribution.CoupleSexPatterns] = table(distribution.CoupleSexPatterns,
		distribution.Row{"couple_type": "married", "sex_pattern": "M_M", "weight": "1"})

	for seed := int64(0); seed < 30; seed++ {
		hh := build(t, seed, dists, model.PatternMarriedNoChildren)
		assert.Equal(t, model.Male, hh.Members[0].Sex)
		assert.Equal(t, model.Male, hh.Members[1].Sex)
	}
}

func TestCoupleSexFallbackIsOpposite(t *testing.T) {
	dists := fullDists()
	delete(dists, distribution.CoupleSexPatterns)

	for seed := int64(0); seed < 30; seed++ {
		hh := build(t, seed, dists, model.PatternUnmarriedPartners)
		require.GreaterOrEqual(t, len(hh.Members), 2)
		assert.Equal(t, model.UnmarriedPartner, hh.Members[1].Relationship)
		assert.Equal(t, hh.Members[0].Sex.Opposite(), hh.Members[1].Sex)
	}
}

func TestBlendedFamilyMix(t *testing.T) {
	dists := fullDists()
	dists[distribution.StepchildPatterns] = table(distribution.StepchildPatterns,
		distribution.Row{"pattern": "mixed", "weighted_count": "1"})

	for seed := int64(0); seed < 30; seed++ {
		hh := build(t, seed, dists, model.PatternBlendedFamily)
		children := hh.Children()
		require.GreaterOrEqual(t, len(children), 2)
		var step, bio int
		for _, c := range children {
			switch c.Relationship {
			case model.Stepchild:
				step++
			case model.BiologicalChild:
				bio++
			}
		}
		assert.Positive(t, step)
		assert.Positive(t, bio)
	}
}

func TestBlendedFamilyStepOnly(t *testing.T) {
	dists := fullDists()
	dists[distribution.StepchildPatterns] = table(distribution.StepchildPatterns,
		distribution.Row{"pattern": "step_only", "weighted_count": "1"})

	hh := build(t, 7, dists, model.PatternBlendedFamily)
	for _, c := range hh.Children() {
		assert.Equal(t, model.Stepchild, c.Relationship)
	}
}

func TestGrandparentHousehold(t *testing.T) {
	dists := fullDists()
	dists[distribution.MultigenerationalPatterns] = table(distribution.MultigenerationalPatterns,
		distribution.Row{"pattern": "grandparent_with_grandchildren", "weighted_count": "1"})

	for seed := int64(0); seed < 30; seed++ {
		hh := build(t, seed, dists, model.PatternMultigenerational)
		assert.Equal(t, model.SubPatternGrandparentGrandchildren, hh.SubPattern)
		children := hh.Children()
		require.NotEmpty(t, children)
		oldestAdult := oldest(hh.Adults())
		for _, c := range children {
			assert.Equal(t, model.Grandchild, c.Relationship)
			assert.LessOrEqual(t, c.Age, max(0, oldestAdult.Age-grandparentGap))
		}
	}
}

func TestAdultWithParentHousehold(t *testing.T) {
	dists := fullDists()
	dists[distribution.MultigenerationalPatterns] = table(distribution.MultigenerationalPatterns,
		distribution.Row{"pattern": "adult_with_parent", "weighted_count": "1"})

	for seed := int64(0); seed < 30; seed++ {
		hh := build(t, seed, dists, model.PatternMultigenerational)
		require.GreaterOrEqual(t, hh.AdultCount(), 2)
		parent := hh.Find(model.Parent)
		require.NotNil(t, parent)
		assert.Greater(t, parent.Age, hh.Householder().Age)
		assert.LessOrEqual(t, parent.Age, maxParentAge)
	}
}

func TestSingleParentHasChildren(t *testing.T) {
	dists := onlyPatterns(map[string]string{"single_parent": "1"})
	for seed := int64(0); seed < 50; seed++ {
		hh := build(t, seed, dists, "")
		assert.GreaterOrEqual(t, hh.ChildCount(), 1)
		assert.LessOrEqual(t, hh.ChildCount(), 4)
	}
}

func TestTeenIncome(t *testing.T) {
	src := sampling.NewSource(1)
	hh := model.NewHousehold("h", "HI", "2023", model.PatternSingleParent)
	hh.Members = []*model.Person{
		{ID: "a", Relationship: model.Householder, Age: 40, EmploymentStatus: model.NotInLaborForce},
		{ID: "b", Relationship: model.BiologicalChild, Age: 16, EmploymentStatus: model.Employed},
		{ID: "c", Relationship: model.BiologicalChild, Age: 15, EmploymentStatus: model.Employed},
	}
	NewIncomeGenerator(discardLogger()).Assign(src, distribution.Set{}, hh)

	assert.GreaterOrEqual(t, hh.Members[1].WageIncome, 5000)
	assert.LessOrEqual(t, hh.Members[1].WageIncome, 15000)
	assert.Zero(t, hh.Members[2].WageIncome)
}

func TestPublicAssistanceForLowIncome(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		src := sampling.NewSource(seed)
		hh := model.NewHousehold("h", "HI", "2023", model.PatternSingleAdult)
		hh.Members = []*model.Person{
			{ID: "a", Relationship: model.Householder, Age: 30, EmploymentStatus: model.NotInLaborForce},
		}
		g := NewIncomeGenerator(discardLogger())
		g.publicAssistance(src, distribution.Set{}, hh)
		assert.Positive(t, hh.Members[0].PublicAssistanceIncome)
		assert.LessOrEqual(t, hh.Members[0].PublicAssistanceIncome, publicAssistanceCap)
	}
}

func TestNoPublicAssistanceAboveCeiling(t *testing.T) {
	src := sampling.NewSource(1)
	hh := model.NewHousehold("h", "HI", "2023", model.PatternSingleAdult)
	hh.Members = []*model.Person{
		{ID: "a", Relationship: model.Householder, Age: 30, EmploymentStatus: model.Employed, WageIncome: 90000},
	}
	NewIncomeGenerator(discardLogger()).publicAssistance(src, fullDists(), hh)
	assert.Zero(t, hh.Members[0].PublicAssistanceIncome)
}

func TestPovertyThreshold(t *testing.T) {
	assert.Equal(t, 14580, PovertyThreshold(1))
	assert.Equal(t, 14580+3*5140, PovertyThreshold(4))
	assert.Equal(t, 14580, PovertyThreshold(0))
}

func TestWageUsesOccupationRow(t *testing.T) {
	dists := fullDists()
	g := NewIncomeGenerator(discardLogger())
	p := &model.Person{Age: 40, EmploymentStatus: model.Employed, OccupationCode: "15-1252"}
	for seed := int64(0); seed < 50; seed++ {
		w := g.wage(sampling.NewSource(seed), dists, p)
		assert.GreaterOrEqual(t, w, 80000)
		assert.LessOrEqual(t, w, 190000)
	}

	// Unknown code in a known major group uses that group's row.
	p.OccupationCode = "15-9999"
	w := g.wage(sampling.NewSource(1), dists, p)
	assert.GreaterOrEqual(t, w, 80000)

	// No data at all gives the default wage scaled by age.
	assert.Equal(t, defaultWage, g.wage(sampling.NewSource(1), distribution.Set{}, &model.Person{Age: 40, EmploymentStatus: model.Employed}))
}

func TestStateIncomeTax(t *testing.T) {
	tests := []struct {
		income int
		joint  bool
		want   float64
	}{
		{0, false, 0},
		{2400, false, 33.6},
		{10000, false, 2400*0.014 + 2400*0.032 + 4800*0.055 + 400*0.064},
		{10000, true, 4800*0.014 + 4800*0.032 + 400*0.055},
	}
	for _, tt := range tests {
		got := StateIncomeTax(tt.income, tt.joint)
		assert.InDelta(t, tt.want, got, 1, "income %d joint %v", tt.income, tt.joint)
	}

	assert.Less(t, StateIncomeTax(100000, true), StateIncomeTax(100000, false))
}

func TestTotals(t *testing.T) {
	hh := model.NewHousehold("h", "HI", "2023", model.PatternMarriedNoChildren)
	hh.Members = []*model.Person{
		{Relationship: model.Householder, Age: 40, WageIncome: 100000, StudentLoanInterest: 1000, IRAContributions: 6500},
		{Relationship: model.Spouse, Age: 38, EducatorExpenses: 250},
	}
	hh.PropertyTaxes = 6000
	hh.StateIncomeTax = 7000
	hh.MortgageInterest = 12000
	hh.MedicalExpenses = 9000
	hh.CharitableContributions = 2000

	Totals(hh)

	assert.Equal(t, 1000, hh.StudentLoanInterest)
	assert.Equal(t, 250, hh.EducatorExpenses)
	assert.Equal(t, 6500, hh.IRAContributions)
	assert.Equal(t, 7750, hh.TotalAboveLineDeductions)
	// SALT capped at 10000; medical above 7.5% of 100000.
	assert.Equal(t, 10000+12000+1500+2000, hh.TotalItemizedDeductions)
}

func TestElderlyMortgageOftenPaidOff(t *testing.T) {
	g := NewExpenseGenerator(discardLogger())
	p := &model.Person{Age: 70}
	zero := 0
	const n = 4000
	for seed := int64(0); seed < n; seed++ {
		if g.mortgageInterest(sampling.NewSource(seed), distribution.Set{}, p, 80000) == 0 {
			zero++
		}
	}
	assert.InDelta(t, 0.40, float64(zero)/n, 0.04)
}

func TestHomeownershipFromTable(t *testing.T) {
	g := NewExpenseGenerator(discardLogger())
	dists := distribution.Set{
		distribution.HomeownershipRates: table(distribution.HomeownershipRates,
			distribution.Row{"age_bracket": "35+", "income_bracket": "$50K+", "tenure": "owner_with_mortgage", "weighted_count": "10"},
			distribution.Row{"age_bracket": "<35", "income_bracket": "<$50K", "tenure": "renter", "weighted_count": "10"},
		),
	}
	hh := model.NewHousehold("h", "HI", "2023", model.PatternSingleAdult)
	for seed := int64(0); seed < 20; seed++ {
		assert.True(t, g.isHomeowner(sampling.NewSource(seed), dists, hh, &model.Person{Age: 50}, 90000))
		assert.False(t, g.isHomeowner(sampling.NewSource(seed), dists, hh, &model.Person{Age: 25}, 20000))
	}
}

func TestIncomeBracketRowBoundaryGoesUp(t *testing.T) {
	tbl := table(distribution.PropertyTaxes,
		distribution.Row{"income_bracket": "<$25K", "median": "1"},
		distribution.Row{"income_bracket": "$25-50K", "median": "2"},
		distribution.Row{"income_bracket": "$50-75K", "median": "3"},
	)
	assert.Equal(t, "$50-75K", incomeBracketRow(tbl, 50000).String("income_bracket"))
	assert.Equal(t, "$25-50K", incomeBracketRow(tbl, 49999).String("income_bracket"))
	assert.Equal(t, "$50-75K", incomeBracketRow(tbl, 900000).String("income_bracket"))
}

func TestHeuristicOwnership(t *testing.T) {
	assert.InDelta(t, 0.78*1.15, heuristicOwnership("CA", 70, 200000), 1e-9)
	assert.InDelta(t, 0.78*1.15*0.91, heuristicOwnership("HI", 70, 200000), 1e-9)
	assert.InDelta(t, 0.25*0.6, heuristicOwnership("CA", 20, 10000), 1e-9)
	assert.LessOrEqual(t, heuristicOwnership("CA", 90, 1000000), homeownerCeiling)
}

func TestChildCareRequiresWorkingAdult(t *testing.T) {
	hh := model.NewHousehold("h", "HI", "2023", model.PatternSingleParent)
	hh.Members = []*model.Person{
		{Relationship: model.Householder, Age: 30, EmploymentStatus: model.NotInLaborForce},
		{Relationship: model.BiologicalChild, Age: 3},
	}
	for seed := int64(0); seed < 20; seed++ {
		assert.Zero(t, childCare(sampling.NewSource(seed), hh))
	}

	hh.Members[0].EmploymentStatus = model.Employed
	var paid int
	for seed := int64(0); seed < 200; seed++ {
		c := childCare(sampling.NewSource(seed), hh)
		assert.LessOrEqual(t, c, childCareCap)
		if c > 0 {
			paid++
			assert.GreaterOrEqual(t, c, 8000)
		}
	}
	assert.Positive(t, paid)
}

func TestChildCareSharesOneRate(t *testing.T) {
	hh := model.NewHousehold("h", "HI", "2023", model.PatternMarriedWithChildren)
	hh.Members = []*model.Person{
		{Relationship: model.Householder, Age: 35, EmploymentStatus: model.Employed},
		{Relationship: model.BiologicalChild, Age: 4},
		{Relationship: model.BiologicalChild, Age: 7},
	}
	for seed := int64(0); seed < 300; seed++ {
		c := childCare(sampling.NewSource(seed), hh)
		if c == 0 || c == childCareCap {
			continue
		}
		// Two children at the same discounted rate.
		assert.Zero(t, c%2, "seed %d: %d is not twice one rate", seed, c)
		assert.GreaterOrEqual(t, c, 2*int(8000*0.85))
	}
}

func TestEducationExpensesSingleHouseholdGate(t *testing.T) {
	hh := model.NewHousehold("h", "HI", "2023", model.PatternMarriedWithChildren)
	hh.Members = []*model.Person{
		{Relationship: model.Householder, Age: 50},
		{Relationship: model.BiologicalChild, Age: 19, Education: model.SomeCollege},
		{Relationship: model.BiologicalChild, Age: 21, Education: model.SomeCollege},
	}
	const trials = 5000
	paying := 0
	for seed := int64(0); seed < trials; seed++ {
		if educationExpenses(sampling.NewSource(seed), hh) > 0 {
			paying++
		}
	}
	// One 60% draw for the household, not one per student.
	assert.InDelta(t, 0.60, float64(paying)/trials, 0.04)
}

func TestEducationExpensesSkipsYoungGraduates(t *testing.T) {
	hh := model.NewHousehold("h", "HI", "2023", model.PatternSingleAdult)
	hh.Members = []*model.Person{{Relationship: model.Householder, Age: 23, Education: model.Masters}}
	for seed := int64(0); seed < 100; seed++ {
		assert.Zero(t, educationExpenses(sampling.NewSource(seed), hh))
	}

	hh.Members[0].Age = 28
	var paid int
	for seed := int64(0); seed < 100; seed++ {
		if c := educationExpenses(sampling.NewSource(seed), hh); c > 0 {
			paid++
			assert.GreaterOrEqual(t, c, 10000)
			assert.LessOrEqual(t, c, 30000)
		}
	}
	assert.Positive(t, paid)
}

func TestStudentLoanInterestAgeTiers(t *testing.T) {
	rate := func(age int) float64 {
		p := &model.Person{Age: age, Education: model.Bachelors}
		const trials = 20000
		n := 0
		for seed := int64(0); seed < trials; seed++ {
			if studentLoanInterest(sampling.NewSource(seed), p) > 0 {
				n++
			}
		}
		return float64(n) / trials
	}
	assert.InDelta(t, 0.40, rate(30), 0.02)
	assert.InDelta(t, 0.40*0.6, rate(40), 0.02)
	assert.InDelta(t, 0.40*0.6*0.5, rate(48), 0.015)
}

func TestEducatorExpensesOnlyForEducators(t *testing.T) {
	teacher := &model.Person{Age: 35, OccupationCode: "25-2021"}
	nurse := &model.Person{Age: 35, OccupationCode: "29-1141"}
	for seed := int64(0); seed < 50; seed++ {
		assert.LessOrEqual(t, educatorExpenses(sampling.NewSource(seed), teacher), educatorCap)
		assert.Zero(t, educatorExpenses(sampling.NewSource(seed), nurse))
	}
}

func TestIRAContributionLimits(t *testing.T) {
	young := &model.Person{Age: 40, EmploymentStatus: model.Employed, WageIncome: 150000}
	old := &model.Person{Age: 60, EmploymentStatus: model.Employed, WageIncome: 150000}
	retired := &model.Person{Age: 40, EmploymentStatus: model.NotInLaborForce}
	for seed := int64(0); seed < 200; seed++ {
		assert.LessOrEqual(t, iraContribution(sampling.NewSource(seed), young), iraLimit)
		assert.LessOrEqual(t, iraContribution(sampling.NewSource(seed), old), iraCatchUpLimit)
		assert.Zero(t, iraContribution(sampling.NewSource(seed), retired))
	}
}

func TestAgeFromEmploymentRespectsWindow(t *testing.T) {
	g := NewAdultGenerator(discardLogger())
	dists := fullDists()
	for seed := int64(0); seed < 200; seed++ {
		age, ok := g.ageFromEmployment(sampling.NewSource(seed), dists, 22, 55)
		require.True(t, ok)
		assert.GreaterOrEqual(t, age, 22)
		assert.LessOrEqual(t, age, 55)
	}
	_, ok := g.ageFromEmployment(sampling.NewSource(1), distribution.Set{}, 22, 55)
	assert.False(t, ok)
}

func TestEducationNormalized(t *testing.T) {
	assert.Equal(t, model.HighSchool, normalizeEducation("hs_graduate"))
	assert.Equal(t, model.Bachelors, normalizeEducation("Bachelors"))
	assert.Equal(t, model.LessThanHS, normalizeEducation("no_hs_diploma"))
}

func TestOccupationFollowsEducation(t *testing.T) {
	g := NewAdultGenerator(discardLogger())
	dists := fullDists()
	for seed := int64(0); seed < 50; seed++ {
		p := &model.Person{Age: 40, EmploymentStatus: model.Employed, Education: model.Masters}
		g.occupation(sampling.NewSource(seed), dists, p)
		assert.Equal(t, "29-1141", p.OccupationCode)
		assert.Equal(t, "Registered Nurses", p.OccupationTitle)
	}
}

func TestChildEducation(t *testing.T) {
	assert.Equal(t, model.NoSchooling, childEducation(2))
	assert.Equal(t, model.Preschool, childEducation(5))
	assert.Equal(t, model.ElementaryMiddle, childEducation(10))
	assert.Equal(t, model.HighSchool, childEducation(16))
}

func TestInheritRace(t *testing.T) {
	src := sampling.NewSource(1)
	same := []*model.Person{{Race: "asian"}, {Race: "asian"}}
	assert.Equal(t, "asian", inheritRace(src, same))
	assert.Equal(t, model.RaceTwoOrMore, inheritRace(src, []*model.Person{{}}))

	mixed := []*model.Person{{Race: "asian"}, {Race: "white"}}
	for seed := int64(0); seed < 20; seed++ {
		assert.Contains(t, []string{"asian", "white", model.RaceTwoOrMore}, inheritRace(sampling.NewSource(seed), mixed))
	}
}
