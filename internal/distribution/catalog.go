package distribution

// Table names understood by the generator.
const (
	HouseholdPatterns         = "household_patterns"
	EmploymentByAge           = "employment_by_age"
	ChildrenByParentAge       = "children_by_parent_age"
	ChildAgeDistributions     = "child_age_distributions"
	SpousalAgeGaps            = "spousal_age_gaps"
	CoupleSexPatterns         = "couple_sex_patterns"
	RaceByAge                 = "race_by_age"
	RaceDistribution          = "race_distribution"
	HispanicOriginByAge       = "hispanic_origin_by_age"
	EducationByAge            = "education_by_age"
	DisabilityByAge           = "disability_by_age"
	EducationOccupation       = "education_occupation_probabilities"
	OccupationWages           = "bls_occupation_wages"
	AgeIncomeAdjustments      = "age_income_adjustments"
	SelfEmploymentProbability = "occupation_self_employment_probability"
	SocialSecurity            = "social_security"
	RetirementIncome          = "retirement_income"
	InterestAndDividendIncome = "interest_and_dividend_income"
	OtherIncomeByEmployment   = "other_income_by_employment_status"
	PublicAssistanceIncome    = "public_assistance_income"
	HomeownershipRates        = "homeownership_rates"
	PropertyTaxes             = "property_taxes"
	MortgageInterest          = "mortgage_interest"
	StepchildPatterns         = "stepchild_patterns"
	MultigenerationalPatterns = "multigenerational_patterns"
)

var weightFields = map[string]string{
	HouseholdPatterns:         "weighted_count",
	EducationByAge:            "weighted_count",
	EducationOccupation:       "weighted_count",
	OccupationWages:           "employment_count",
	PublicAssistanceIncome:    "weighted_count",
	HomeownershipRates:        "weighted_count",
	StepchildPatterns:         "weighted_count",
	MultigenerationalPatterns: "weighted_count",
}

// DefaultWeightField returns the weight column for a known table, "weight" otherwise.
func DefaultWeightField(name string) string {
	if f, ok := weightFields[name]; ok {
		return f
	}
	return "weight"
}

// TableNames lists every table the generator may read, in load order.
func TableNames() []string {
	return []string{
		HouseholdPatterns,
		EmploymentByAge,
		ChildrenByParentAge,
		ChildAgeDistributions,
		SpousalAgeGaps,
		CoupleSexPatterns,
		RaceByAge,
		RaceDistribution,
		HispanicOriginByAge,
		EducationByAge,
		DisabilityByAge,
		EducationOccupation,
		OccupationWages,
		AgeIncomeAdjustments,
		SelfEmploymentProbability,
		SocialSecurity,
		RetirementIncome,
		InterestAndDividendIncome,
		OtherIncomeByEmployment,
		PublicAssistanceIncome,
		HomeownershipRates,
		PropertyTaxes,
		MortgageInterest,
		StepchildPatterns,
		MultigenerationalPatterns,
	}
}
