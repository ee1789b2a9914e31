package generator

import (
	"log/slog"
	"math"

	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/model"
	"github.com/dukerupert/hhsynth/internal/sampling"
)

// Per-source income caps.
const (
	wageCap             = 500000
	selfEmploymentCap   = 250000
	unemploymentCap     = 30000
	socialSecurityCap   = 50000
	retirementCap       = 200000
	interestCap         = 100000
	dividendCap         = 100000
	otherIncomeCap      = 50000
	publicAssistanceCap = 15000

	defaultWage       = 45000
	povertyBase       = 14580
	povertyPerMember  = 5140
	assistanceCeiling = 1.5
)

var defaultAgeMultipliers = []struct {
	bracket    string
	multiplier float64
}{
	{"18-24", 0.60},
	{"25-34", 0.85},
	{"35-44", 1.00},
	{"45-54", 1.10},
	{"55-64", 1.05},
	{"65+", 0.90},
}

var selfEmploymentRates = map[string]float64{
	"11": 0.15, "13": 0.10, "15": 0.12, "17": 0.08, "19": 0.05, "21": 0.08,
	"23": 0.25, "25": 0.05, "27": 0.30, "29": 0.15, "31": 0.05, "33": 0.02,
	"35": 0.08, "37": 0.15, "39": 0.20, "41": 0.10, "43": 0.03, "45": 0.25,
	"47": 0.25, "49": 0.15, "51": 0.05, "53": 0.12,
}

// professionalGroups raise the odds of retirement income.
var professionalGroups = map[string]bool{
	"11": true, "13": true, "15": true, "17": true, "23": true, "29": true,
}

var wagePercentiles = []string{"p10", "p25", "median", "p75", "p90"}
var wagePercentileWeights = []float64{0.1, 0.2, 0.4, 0.2, 0.1}

// IncomeGenerator assigns income to every member of a household.
type IncomeGenerator struct {
	logger *slog.Logger
}

func NewIncomeGenerator(logger *slog.Logger) *IncomeGenerator {
	return &IncomeGenerator{logger: logger.With("stage", "income")}
}

// Assign fills the income fields of every member, then adds means-tested
// public assistance to the householder.
func (g *IncomeGenerator) Assign(src *sampling.Source, dists distribution.Set, hh *model.Household) {
	for _, p := range hh.Members {
		if p.IsAdult() {
			g.adult(src, dists, p)
			continue
		}
		if p.IsEmployed() && p.Age >= 16 {
			p.WageIncome = sampling.Round(src.Uniform(5000, 15000))
		}
	}
	g.publicAssistance(src, dists, hh)
}

func (g *IncomeGenerator) adult(src *sampling.Source, dists distribution.Set, p *model.Person) {
	if p.IsEmployed() {
		p.WageIncome = g.wage(src, dists, p)
	}
	p.SelfEmploymentIncome = g.selfEmployment(src, dists, p)
	if p.EmploymentStatus == model.Unemployed && src.Chance(0.40) {
		weekly := src.Uniform(250, 650)
		weeks := src.IntRange(10, 26)
		p.UnemploymentIncome = capAmount(weekly*float64(weeks), unemploymentCap)
	}
	if p.Age >= 62 || p.HasDisability {
		p.SocialSecurityIncome = g.socialSecurity(src, dists, p)
	}
	if p.Age >= 55 {
		p.RetirementIncome = g.retirement(src, dists, p)
	}
	g.investment(src, dists, p)
	p.OtherIncome = g.other(src, dists, p)
}

func (g *IncomeGenerator) ageMultiplier(dists distribution.Set, age int) float64 {
	if row, ok := firstIn(dists, distribution.AgeIncomeAdjustments, "age_bracket", age); ok {
		if m, ok := row.Float("multiplier"); ok && m > 0 {
			return m
		}
	}
	for _, d := range defaultAgeMultipliers {
		if sampling.BracketContains(d.bracket, float64(age)) {
			return d.multiplier
		}
	}
	return 1.0
}

// occupationRow finds the wage row for a SOC code, falling back to the
// first occupation in the same major group.
func occupationRow(t distribution.Table, code string) (distribution.Row, bool) {
	if code == "" {
		return nil, false
	}
	var groupMatch distribution.Row
	group := model.SOCMajorGroup(code)
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		soc := r.String("soc_code")
		if soc == code {
			return r, true
		}
		if groupMatch == nil && model.SOCMajorGroup(soc) == group {
			groupMatch = r
		}
	}
	return groupMatch, groupMatch != nil
}

func (g *IncomeGenerator) wage(src *sampling.Source, dists distribution.Set, p *model.Person) int {
	mult := g.ageMultiplier(dists, p.Age)

	wages, ok := dists.Get(distribution.OccupationWages)
	if !ok {
		fallback(g.logger, "bls_occupation_wages")
		return capAmount(defaultWage*mult, wageCap)
	}
	row, ok := occupationRow(wages, p.OccupationCode)
	if !ok {
		fallback(g.logger, "occupation_wage_row")
		return capAmount(defaultWage*mult, wageCap)
	}

	pct := sampling.Choose(src, wagePercentiles, wagePercentileWeights)
	base, ok := row.Float(pct + "_annual_wage")
	if !ok {
		base, ok = row.Float("median_annual_wage")
	}
	if !ok || base <= 0 {
		base = defaultWage
	}

	wage := base * mult
	if p.Age >= 65 {
		switch roll := src.Float64(); {
		case roll < 0.55:
			wage *= 0.5
		case roll >= 0.90:
			wage *= 1.1
		}
	}
	return capAmount(wage, wageCap)
}

func (g *IncomeGenerator) selfEmployment(src *sampling.Source, dists distribution.Set, p *model.Person) int {
	if !p.IsEmployed() {
		return 0
	}
	prob := 0.10
	if rate, ok := selfEmploymentRates[p.MajorGroup()]; ok {
		prob = rate
	}
	if t, ok := dists.Get(distribution.SelfEmploymentProbability); ok && p.OccupationCode != "" {
		if row, ok := occupationRow(t, p.OccupationCode); ok {
			if v, ok := row.Float("probability"); ok {
				prob = v
			}
		}
	}
	if !src.Chance(prob) {
		return 0
	}
	if p.WageIncome > 0 {
		return capAmount(src.Uniform(0.2, 0.8)*float64(p.WageIncome), selfEmploymentCap)
	}
	return capAmount(src.Uniform(20000, 100000), selfEmploymentCap)
}

func (g *IncomeGenerator) socialSecurity(src *sampling.Source, dists distribution.Set, p *model.Person) int {
	if _, ok := dists.Get(distribution.SocialSecurity); !ok {
		fallback(g.logger, "social_security")
		switch {
		case p.HasDisability && p.Age < 62:
			return capAmount(src.Uniform(12000, 24000), socialSecurityCap)
		case p.Age >= 67:
			return capAmount(src.Uniform(18000, 36000), socialSecurityCap)
		default:
			return capAmount(src.Uniform(12000, 28000), socialSecurityCap)
		}
	}

	row, ok := firstIn(dists, distribution.SocialSecurity, "age_bracket", p.Age)
	if !ok {
		return 0
	}
	mean, ok := row.Float("mean_amount")
	if !ok {
		mean = 20000
	}
	amount := math.Max(0, src.Normal(mean, mean*0.20))
	if p.HasDisability && p.Age < 62 {
		amount *= 0.7
	}
	return capAmount(amount, socialSecurityCap)
}

func (g *IncomeGenerator) retirement(src *sampling.Source, dists distribution.Set, p *model.Person) int {
	prob := math.Min(0.80, float64(p.Age-55)*0.04+0.10)
	if professionalGroups[p.MajorGroup()] {
		prob += 0.15
	}
	if !src.Chance(prob) {
		return 0
	}

	if _, ok := dists.Get(distribution.RetirementIncome); !ok {
		fallback(g.logger, "retirement_income")
		if p.Age >= 70 {
			return capAmount(src.Uniform(15000, 60000), retirementCap)
		}
		return capAmount(src.Uniform(5000, 40000), retirementCap)
	}
	row, ok := firstIn(dists, distribution.RetirementIncome, "age_bracket", p.Age)
	if !ok {
		return capAmount(src.Uniform(10000, 40000), retirementCap)
	}
	mean, ok := row.Float("mean_amount")
	if !ok {
		mean = 25000
	}
	return capAmount(src.Normal(mean, mean*0.25), retirementCap)
}

func (g *IncomeGenerator) investment(src *sampling.Source, dists distribution.Set, p *model.Person) {
	income := p.WageIncome + p.SelfEmploymentIncome + p.SocialSecurityIncome + p.RetirementIncome

	prob := 0.10
	if p.Age >= 45 {
		prob += 0.10
	}
	if p.Age >= 55 {
		prob += 0.10
	}
	if p.Age >= 65 {
		prob += 0.15
	}
	if income >= 50000 {
		prob += 0.10
	}
	if income >= 100000 {
		prob += 0.15
	}
	if income >= 150000 {
		prob += 0.15
	}
	if !src.Chance(math.Min(prob, 0.80)) {
		return
	}

	if row, err := sampleTable(src, dists, distribution.InterestAndDividendIncome); err == nil {
		total, ok := sampling.SampleBracket(src, row.String("income_bracket"), sampling.DollarTail)
		if !ok || total <= 0 {
			total = sampling.Round(src.Uniform(1000, 10000))
		}
		share := src.Uniform(0.3, 0.5)
		p.InterestIncome = capAmount(float64(total)*share, interestCap)
		p.DividendIncome = capAmount(float64(total)*(1-share), dividendCap)
		return
	}

	fallback(g.logger, "interest_and_dividend_income")
	switch {
	case income > 100000:
		p.InterestIncome = capAmount(src.Uniform(2000, 15000), interestCap)
		p.DividendIncome = capAmount(src.Uniform(2000, 20000), dividendCap)
	case income > 50000:
		p.InterestIncome = capAmount(src.Uniform(500, 5000), interestCap)
		p.DividendIncome = capAmount(src.Uniform(500, 8000), dividendCap)
	default:
		p.InterestIncome = capAmount(src.Uniform(100, 2000), interestCap)
		p.DividendIncome = capAmount(src.Uniform(100, 3000), dividendCap)
	}
}

func (g *IncomeGenerator) other(src *sampling.Source, dists distribution.Set, p *model.Person) int {
	if !src.Chance(0.08) {
		return 0
	}
	t, ok := dists.Get(distribution.OtherIncomeByEmployment)
	if !ok {
		fallback(g.logger, "other_income_by_employment_status")
		return capAmount(src.Uniform(1000, 10000), otherIncomeCap)
	}
	row := t.Row(0)
	if rows := distribution.Where(t, "employment_status", string(p.EmploymentStatus)); rows.Len() > 0 {
		row = rows.Row(0)
	}
	mean, ok := row.Float("mean_amount")
	if !ok {
		mean = 5000
	}
	return capAmount(src.Normal(mean, mean*0.30), otherIncomeCap)
}

// PovertyThreshold is the means-test threshold for a household of size members.
func PovertyThreshold(size int) int {
	return povertyBase + max(0, size-1)*povertyPerMember
}

func (g *IncomeGenerator) publicAssistance(src *sampling.Source, dists distribution.Set, hh *model.Household) {
	householder := hh.Householder()
	if householder == nil {
		return
	}
	threshold := float64(PovertyThreshold(len(hh.Members)))
	income := float64(hh.TotalIncome())
	if income >= threshold*assistanceCeiling {
		return
	}

	var amount float64
	if row, err := sampleTable(src, dists, distribution.PublicAssistanceIncome); err == nil {
		mean, ok := row.Float("mean_amount")
		if !ok {
			mean = 4000
		}
		amount = src.Normal(mean, mean*0.20)
	} else {
		fallback(g.logger, "public_assistance_income")
		if income < threshold {
			amount = src.Uniform(3000, 8000)
		} else {
			amount = src.Uniform(1000, 4000)
		}
	}
	householder.PublicAssistanceIncome = capAmount(amount, publicAssistanceCap)
}
