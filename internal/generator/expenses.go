package generator

import (
	"log/slog"
	"math"
	"strings"

	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/model"
	"github.com/dukerupert/hhsynth/internal/sampling"
)

const (
	saltCap          = 10000
	medicalFloorRate = 0.075
	charityIncomeCap = 0.60
	studentLoanCap   = 2500
	educatorCap      = 300
	iraLimit         = 6500
	iraCatchUpLimit  = 7500
	childCareCap     = 16000
	homeownerCeiling = 0.90
)

// regionOwnershipAdjustment scales the heuristic homeownership rate for
// regions whose housing market departs from the national curve.
var regionOwnershipAdjustment = map[string]float64{
	"HI": 0.91,
}

type taxBracket struct {
	upTo float64
	rate float64
}

var singleSchedule = []taxBracket{
	{2400, 0.014}, {4800, 0.032}, {9600, 0.055}, {14400, 0.064},
	{19200, 0.068}, {24000, 0.072}, {36000, 0.076}, {48000, 0.079},
	{150000, 0.0825}, {175000, 0.09}, {200000, 0.10}, {math.Inf(1), 0.11},
}

var jointSchedule = []taxBracket{
	{4800, 0.014}, {9600, 0.032}, {19200, 0.055}, {28800, 0.064},
	{38400, 0.068}, {48000, 0.072}, {72000, 0.076}, {96000, 0.079},
	{300000, 0.0825}, {350000, 0.09}, {400000, 0.10}, {math.Inf(1), 0.11},
}

// ExpenseGenerator assigns deductible and credit-related expenses.
type ExpenseGenerator struct {
	logger *slog.Logger
}

func NewExpenseGenerator(logger *slog.Logger) *ExpenseGenerator {
	return &ExpenseGenerator{logger: logger.With("stage", "expenses")}
}

// Assign fills the household expense fields and per-adult above-the-line
// deductions, then recomputes the totals.
func (g *ExpenseGenerator) Assign(src *sampling.Source, dists distribution.Set, hh *model.Household) {
	householder := hh.Householder()
	if householder == nil {
		return
	}
	income := hh.TotalIncome()

	hh.IsHomeowner = g.isHomeowner(src, dists, hh, householder, income)
	if hh.IsHomeowner {
		hh.PropertyTaxes = g.propertyTax(src, dists, income)
		hh.MortgageInterest = g.mortgageInterest(src, dists, householder, income)
	}
	hh.StateIncomeTax = StateIncomeTax(income, hh.Pattern.FilesJointly())
	hh.MedicalExpenses = medicalExpenses(src, hh, income)
	hh.CharitableContributions = charitable(src, income)

	for _, p := range hh.Adults() {
		p.StudentLoanInterest = studentLoanInterest(src, p)
		p.EducatorExpenses = educatorExpenses(src, p)
		p.IRAContributions = iraContribution(src, p)
	}
	hh.ChildCareExpenses = childCare(src, hh)
	hh.EducationExpenses = educationExpenses(src, hh)

	Totals(hh)
}

// Totals recomputes the household above-the-line sums and both deduction totals.
func Totals(hh *model.Household) {
	hh.StudentLoanInterest, hh.EducatorExpenses, hh.IRAContributions = 0, 0, 0
	for _, p := range hh.Adults() {
		hh.StudentLoanInterest += p.StudentLoanInterest
		hh.EducatorExpenses += p.EducatorExpenses
		hh.IRAContributions += p.IRAContributions
	}

	income := hh.TotalIncome()
	medicalExcess := max(0, hh.MedicalExpenses-int(medicalFloorRate*float64(income)))
	hh.TotalItemizedDeductions = min(hh.PropertyTaxes+hh.StateIncomeTax, saltCap) +
		hh.MortgageInterest + medicalExcess + hh.CharitableContributions
	hh.TotalAboveLineDeductions = hh.StudentLoanInterest + hh.EducatorExpenses + hh.IRAContributions
}

func ownershipAgeBracket(age int) string {
	switch {
	case age < 25:
		return "<25"
	case age < 35:
		return "25-34"
	case age < 45:
		return "35-44"
	case age < 55:
		return "45-54"
	case age < 65:
		return "55-64"
	default:
		return "65+"
	}
}

func ownershipIncomeBracket(income int) string {
	switch {
	case income < 25000:
		return "<$25K"
	case income < 50000:
		return "$25-50K"
	case income < 75000:
		return "$50-75K"
	case income < 100000:
		return "$75-100K"
	case income < 150000:
		return "$100-150K"
	default:
		return "$150K+"
	}
}

func (g *ExpenseGenerator) isHomeowner(src *sampling.Source, dists distribution.Set, hh *model.Household, householder *model.Person, income int) bool {
	t, ok := dists.Get(distribution.HomeownershipRates)
	if !ok {
		fallback(g.logger, "homeownership_rates")
		return src.Chance(heuristicOwnership(hh.Region, householder.Age, income))
	}

	ageBracket := sampling.FindMatchingBracket(float64(householder.Age), t.Distinct("age_bracket"), ownershipAgeBracket(householder.Age))
	incomeBracket := sampling.FindIncomeBracket(float64(income), t.Distinct("income_bracket"), ownershipIncomeBracket(income))

	byAge := distribution.Where(t, "age_bracket", ageBracket)
	byIncome := distribution.Where(t, "income_bracket", incomeBracket)
	candidates := []distribution.Table{
		distribution.Where(byAge, "income_bracket", incomeBracket),
		byIncome,
		byAge,
		t,
	}
	for _, rows := range candidates {
		if rows.Len() > 0 {
			return src.Chance(ownerShare(rows))
		}
	}
	return false
}

// ownerShare is the weight of owner tenures over all tenures.
func ownerShare(t distribution.Table) float64 {
	var owners, total float64
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		w, _ := r.Float(t.WeightField())
		if w <= 0 {
			continue
		}
		total += w
		if strings.HasPrefix(strings.ToLower(r.String("tenure")), "owner") {
			owners += w
		}
	}
	if total == 0 {
		return 0
	}
	return owners / total
}

func heuristicOwnership(region string, age, income int) float64 {
	var base float64
	switch {
	case age < 25:
		base = 0.25
	case age < 35:
		base = 0.37
	case age < 45:
		base = 0.55
	case age < 55:
		base = 0.65
	case age < 65:
		base = 0.70
	default:
		base = 0.78
	}
	switch {
	case income < 25000:
		base *= 0.6
	case income < 50000:
		base *= 0.8
	case income < 100000:
	case income < 150000:
		base *= 1.1
	default:
		base *= 1.15
	}
	if adj, ok := regionOwnershipAdjustment[strings.ToUpper(region)]; ok {
		base *= adj
	}
	return math.Min(base, homeownerCeiling)
}

// incomeBracketRow returns the first row whose income_bracket contains income,
// or the last row when income exceeds every bracket.
func incomeBracketRow(t distribution.Table, income int) distribution.Row {
	brackets := t.Distinct("income_bracket")
	if len(brackets) == 0 {
		return nil
	}
	b := sampling.FindIncomeBracket(float64(income), brackets, brackets[len(brackets)-1])
	rows := distribution.Where(t, "income_bracket", b)
	if rows.Len() == 0 {
		return nil
	}
	return rows.Row(0)
}

func (g *ExpenseGenerator) propertyTax(src *sampling.Source, dists distribution.Set, income int) int {
	if t, ok := dists.Get(distribution.PropertyTaxes); ok {
		row := incomeBracketRow(t, income)
		if row == nil {
			return sampling.Round(src.Uniform(2000, 5000))
		}
		mean, ok := row.Float("mean_amount")
		if !ok {
			mean = 3000
		}
		return max(500, sampling.Round(src.Normal(mean, mean*0.25)))
	}

	fallback(g.logger, "property_taxes")
	switch {
	case income < 50000:
		return sampling.Round(src.Uniform(1000, 2500))
	case income < 100000:
		return sampling.Round(src.Uniform(2000, 4500))
	case income < 200000:
		return sampling.Round(src.Uniform(3500, 7000))
	default:
		return sampling.Round(src.Uniform(5000, 12000))
	}
}

func (g *ExpenseGenerator) mortgageInterest(src *sampling.Source, dists distribution.Set, householder *model.Person, income int) int {
	if householder.Age >= 65 && src.Chance(0.40) {
		return 0
	}

	if t, ok := dists.Get(distribution.MortgageInterest); ok {
		row := incomeBracketRow(t, income)
		if row == nil {
			return sampling.Round(src.Uniform(5000, 15000))
		}
		mean, ok := row.Float("mean_amount")
		if !ok {
			mean = 10000
		}
		return max(0, sampling.Round(src.Normal(mean, mean*0.30)))
	}

	fallback(g.logger, "mortgage_interest")
	switch {
	case income < 50000:
		return sampling.Round(src.Uniform(3000, 8000))
	case income < 100000:
		return sampling.Round(src.Uniform(6000, 15000))
	case income < 200000:
		return sampling.Round(src.Uniform(10000, 25000))
	default:
		return sampling.Round(src.Uniform(15000, 35000))
	}
}

// StateIncomeTax applies the progressive schedule to income.
func StateIncomeTax(income int, joint bool) int {
	schedule := singleSchedule
	if joint {
		schedule = jointSchedule
	}
	remaining := float64(income)
	var tax, floor float64
	for _, b := range schedule {
		if remaining <= 0 {
			break
		}
		width := b.upTo - floor
		taxed := math.Min(remaining, width)
		tax += taxed * b.rate
		remaining -= taxed
		floor = b.upTo
	}
	return int(tax)
}

func medicalExpenses(src *sampling.Source, hh *model.Household, income int) int {
	prob := 0.10
	var elderly, disabled bool
	for _, p := range hh.Members {
		elderly = elderly || p.IsElderly()
		disabled = disabled || p.HasDisability
	}
	if elderly {
		prob += 0.25
	}
	if disabled {
		prob += 0.20
	}
	if len(hh.Members) >= 4 {
		prob += 0.10
	}
	if !src.Chance(prob) {
		return 0
	}
	return int(medicalFloorRate*float64(income) + src.Exponential(5000))
}

func charitable(src *sampling.Source, income int) int {
	if income <= 0 || !src.Chance(0.65) {
		return 0
	}
	var rate float64
	switch {
	case income < 30000:
		rate = src.Uniform(0.005, 0.02)
	case income < 75000:
		rate = src.Uniform(0.01, 0.025)
	case income < 150000:
		rate = src.Uniform(0.015, 0.035)
	default:
		rate = src.Uniform(0.02, 0.06)
	}
	if src.Chance(0.05) {
		rate *= src.Uniform(1.5, 3.0)
	}
	amount := float64(income) * rate
	return sampling.Round(math.Min(amount, float64(income)*charityIncomeCap))
}

func hasCollege(education string) bool {
	switch education {
	case model.SomeCollege, model.Associates, model.Bachelors, model.Masters, model.Professional, model.Doctorate:
		return true
	}
	return false
}

func isGraduate(education string) bool {
	switch education {
	case model.Masters, model.Professional, model.Doctorate:
		return true
	}
	return false
}

func studentLoanInterest(src *sampling.Source, p *model.Person) int {
	if p.Age < 22 || p.Age > 50 || !hasCollege(p.Education) {
		return 0
	}
	prob, avg := 0.25, 800.0
	switch {
	case isGraduate(p.Education):
		prob, avg = 0.50, 1800
	case p.Education == model.Bachelors:
		prob, avg = 0.40, 1400
	}
	// Tiers compound: over 45 carries both reductions.
	if p.Age > 35 {
		prob *= 0.6
	}
	if p.Age > 45 {
		prob *= 0.5
	}
	if !src.Chance(prob) {
		return 0
	}
	return capAmount(src.Normal(avg, avg*0.3), studentLoanCap)
}

func educatorExpenses(src *sampling.Source, p *model.Person) int {
	if p.MajorGroup() != "25" || !src.Chance(0.70) {
		return 0
	}
	return capAmount(src.Uniform(150, 300), educatorCap)
}

func iraContribution(src *sampling.Source, p *model.Person) int {
	if !p.IsEmployed() || p.Age < 21 || p.Age > 70 {
		return 0
	}
	var prob float64
	switch {
	case p.WageIncome < 25000:
		prob = 0.05
	case p.WageIncome < 50000:
		prob = 0.10
	case p.WageIncome < 100000:
		prob = 0.18
	default:
		prob = 0.25
	}
	if p.Age >= 35 && p.Age <= 55 {
		prob *= 1.3
	}
	if !src.Chance(prob) {
		return 0
	}
	limit := iraLimit
	if p.Age >= 50 {
		limit = iraCatchUpLimit
	}
	if src.Chance(0.30) {
		return limit
	}
	return sampling.Round(src.Uniform(500, 0.8*float64(limit)))
}

func childCare(src *sampling.Source, hh *model.Household) int {
	young := 0
	for _, c := range hh.Children() {
		if c.Age < 13 {
			young++
		}
	}
	if young == 0 {
		return 0
	}
	working := false
	for _, a := range hh.Adults() {
		working = working || a.IsEmployed()
	}
	if !working || !src.Chance(0.65) {
		return 0
	}
	perChild := int(src.Uniform(8000, 15000))
	if young >= 2 {
		perChild = int(float64(perChild) * 0.85)
	}
	return min(perChild*young, childCareCap)
}

// educationExpenses charges tuition for undergraduates aged 18-24 and graduate
// students aged 25-35. One draw decides whether the household pays any
// tuition at all.
func educationExpenses(src *sampling.Source, hh *model.Household) int {
	var undergrads, grads int
	for _, p := range hh.Members {
		switch {
		case p.Age >= 18 && p.Age <= 24:
			if p.Education == model.SomeCollege || p.Education == model.Associates || p.Education == model.Bachelors {
				undergrads++
			}
		case p.Age >= 22 && p.Age <= 35:
			if isGraduate(p.Education) {
				grads++
			}
		}
	}
	if undergrads+grads == 0 || !src.Chance(0.60) {
		return 0
	}

	total := 0
	for _, p := range hh.Members {
		switch {
		case p.Age >= 18 && p.Age <= 24:
			if p.Education != model.SomeCollege && p.Education != model.Associates && p.Education != model.Bachelors {
				continue
			}
			if src.Chance(0.40) {
				total += int(src.Uniform(3000, 5000))
			} else {
				total += int(src.Uniform(8000, 15000))
			}
		case p.Age >= 22 && p.Age <= 35 && isGraduate(p.Education):
			total += int(src.Uniform(10000, 30000))
		}
	}
	return total
}
