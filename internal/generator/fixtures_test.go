package generator

import (
	"io"
	"log/slog"
	"sort"

	"github.com/dukerupert/hhsynth/internal/distribution"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func table(name string, rows ...distribution.Row) distribution.Table {
	return distribution.NewTable(name, "", rows)
}

// onlyPatterns is the minimal data: a single required table.
func onlyPatterns(weights map[string]string) distribution.Set {
	names := make([]string, 0, len(weights))
	for p := range weights {
		names = append(names, p)
	}
	sort.Strings(names)
	var rows []distribution.Row
	for _, p := range names {
		rows = append(rows, distribution.Row{"pattern": p, "weighted_count": weights[p]})
	}
	return distribution.Set{distribution.HouseholdPatterns: table(distribution.HouseholdPatterns, rows...)}
}

// fullDists exercises every optional table.
func fullDists() distribution.Set {
	set := distribution.Set{
		distribution.HouseholdPatterns: table(distribution.HouseholdPatterns,
			distribution.Row{"pattern": "married_couple_no_children", "weighted_count": "200"},
			distribution.Row{"pattern": "married_couple_with_children", "weighted_count": "180"},
			distribution.Row{"pattern": "single_parent", "weighted_count": "60"},
			distribution.Row{"pattern": "single_person", "weighted_count": "250"},
			distribution.Row{"pattern": "blended_family", "weighted_count": "40"},
			distribution.Row{"pattern": "multigenerational", "weighted_count": "70"},
			distribution.Row{"pattern": "unmarried_partner", "weighted_count": "50"},
			distribution.Row{"pattern": "other", "weighted_count": "30"},
		),
		distribution.SpousalAgeGaps: table(distribution.SpousalAgeGaps,
			distribution.Row{"age_gap_bracket": "-10_or_less", "weight": "3"},
			distribution.Row{"age_gap_bracket": "-5_to_-1", "weight": "15"},
			distribution.Row{"age_gap_bracket": "0", "weight": "20"},
			distribution.Row{"age_gap_bracket": "1_to_5", "weight": "40"},
			distribution.Row{"age_gap_bracket": "10_or_more", "weight": "5"},
		),
		distribution.CoupleSexPatterns: table(distribution.CoupleSexPatterns,
			distribution.Row{"couple_type": "married", "sex_pattern": "M_F", "weight": "90"},
			distribution.Row{"couple_type": "married", "sex_pattern": "F_M", "weight": "8"},
			distribution.Row{"couple_type": "married", "sex_pattern": "F_F", "weight": "2"},
			distribution.Row{"couple_type": "unmarried", "sex_pattern": "M_F", "weight": "80"},
			distribution.Row{"couple_type": "unmarried", "sex_pattern": "M_M", "weight": "20"},
		),
		distribution.RaceByAge: table(distribution.RaceByAge,
			distribution.Row{"age_bracket": "18-44", "race": "asian", "weight": "40"},
			distribution.Row{"age_bracket": "18-44", "race": "white", "weight": "30"},
			distribution.Row{"age_bracket": "18-44", "race": "native_hawaiian_pacific_islander", "weight": "30"},
			distribution.Row{"age_bracket": "45+", "race": "asian", "weight": "50"},
			distribution.Row{"age_bracket": "45+", "race": "white", "weight": "50"},
		),
		distribution.RaceDistribution: table(distribution.RaceDistribution,
			distribution.Row{"race": "asian", "weight": "1"},
		),
		distribution.HispanicOriginByAge: table(distribution.HispanicOriginByAge,
			distribution.Row{"age_bracket": "18+", "hispanic_origin": "hispanic", "weight": "11"},
			distribution.Row{"age_bracket": "18+", "hispanic_origin": "not_hispanic", "weight": "89"},
		),
		distribution.EducationByAge: table(distribution.EducationByAge,
			distribution.Row{"age_bracket": "18-24", "education_level": "high_school", "weighted_count": "50"},
			distribution.Row{"age_bracket": "18-24", "education_level": "some_college", "weighted_count": "50"},
			distribution.Row{"age_bracket": "25+", "education_level": "hs_graduate", "weighted_count": "30"},
			distribution.Row{"age_bracket": "25+", "education_level": "bachelors", "weighted_count": "40"},
			distribution.Row{"age_bracket": "25+", "education_level": "masters", "weighted_count": "20"},
			distribution.Row{"age_bracket": "25+", "education_level": "doctorate", "weighted_count": "10"},
		),
		distribution.DisabilityByAge: table(distribution.DisabilityByAge,
			distribution.Row{"age_bracket": "18-64", "disability_percentage": "10"},
			distribution.Row{"age_bracket": "65+", "disability_percentage": "35"},
		),
		distribution.EducationOccupation: table(distribution.EducationOccupation,
			distribution.Row{"education_level": "hs_graduate", "soc_major_group": "41", "weighted_count": "5"},
			distribution.Row{"education_level": "bachelors", "soc_major_group": "25", "weighted_count": "5"},
			distribution.Row{"education_level": "bachelors", "soc_major_group": "15", "weighted_count": "5"},
			distribution.Row{"education_level": "masters", "soc_major_group": "29", "weighted_count": "5"},
			distribution.Row{"education_level": "professional_doctorate", "soc_major_group": "29", "weighted_count": "5"},
		),
		distribution.OccupationWages: table(distribution.OccupationWages,
			distribution.Row{"soc_code": "41-2031", "occupation_title": "Retail Salespersons", "employment_count": "20000",
				"p10_annual_wage": "28000", "p25_annual_wage": "31000", "median_annual_wage": "35000", "p75_annual_wage": "40000", "p90_annual_wage": "52000"},
			distribution.Row{"soc_code": "25-2021", "occupation_title": "Elementary School Teachers", "employment_count": "6000",
				"p10_annual_wage": "45000", "p25_annual_wage": "52000", "median_annual_wage": "64000", "p75_annual_wage": "72000", "p90_annual_wage": "85000"},
			distribution.Row{"soc_code": "15-1252", "occupation_title": "Software Developers", "employment_count": "3000",
				"p10_annual_wage": "80000", "p25_annual_wage": "100000", "median_annual_wage": "125000", "p75_annual_wage": "150000", "p90_annual_wage": "190000"},
			distribution.Row{"soc_code": "29-1141", "occupation_title": "Registered Nurses", "employment_count": "11000",
				"p10_annual_wage": "90000", "p25_annual_wage": "105000", "median_annual_wage": "125000", "p75_annual_wage": "140000", "p90_annual_wage": "160000"},
		),
		distribution.AgeIncomeAdjustments: table(distribution.AgeIncomeAdjustments,
			distribution.Row{"age_bracket": "18-24", "multiplier": "0.6"},
			distribution.Row{"age_bracket": "25-64", "multiplier": "1.0"},
			distribution.Row{"age_bracket": "65+", "multiplier": "0.9"},
		),
		distribution.SocialSecurity: table(distribution.SocialSecurity,
			distribution.Row{"age_bracket": "18-61", "mean_amount": "14000"},
			distribution.Row{"age_bracket": "62+", "mean_amount": "22000"},
		),
		distribution.RetirementIncome: table(distribution.RetirementIncome,
			distribution.Row{"age_bracket": "55+", "mean_amount": "28000"},
		),
		distribution.InterestAndDividendIncome: table(distribution.InterestAndDividendIncome,
			distribution.Row{"income_bracket": "$1-2,499", "weight": "50"},
			distribution.Row{"income_bracket": "$2,500-9,999", "weight": "30"},
			distribution.Row{"income_bracket": "$10K+", "weight": "20"},
		),
		distribution.OtherIncomeByEmployment: table(distribution.OtherIncomeByEmployment,
			distribution.Row{"employment_status": "employed", "mean_amount": "4000"},
			distribution.Row{"employment_status": "not_in_labor_force", "mean_amount": "7000"},
		),
		distribution.PublicAssistanceIncome: table(distribution.PublicAssistanceIncome,
			distribution.Row{"mean_amount": "4200", "weighted_count": "1"},
		),
		distribution.HomeownershipRates: table(distribution.HomeownershipRates,
			distribution.Row{"age_bracket": "<35", "income_bracket": "<$50K", "tenure": "renter", "weighted_count": "80"},
			distribution.Row{"age_bracket": "<35", "income_bracket": "<$50K", "tenure": "owner_with_mortgage", "weighted_count": "20"},
			distribution.Row{"age_bracket": "35+", "income_bracket": "$50K+", "tenure": "owner_with_mortgage", "weighted_count": "50"},
			distribution.Row{"age_bracket": "35+", "income_bracket": "$50K+", "tenure": "owner_free_clear", "weighted_count": "20"},
			distribution.Row{"age_bracket": "35+", "income_bracket": "$50K+", "tenure": "renter", "weighted_count": "30"},
		),
		distribution.PropertyTaxes: table(distribution.PropertyTaxes,
			distribution.Row{"income_bracket": "<$50K", "mean_amount": "1800"},
			distribution.Row{"income_bracket": "$50K+", "mean_amount": "3800"},
		),
		distribution.MortgageInterest: table(distribution.MortgageInterest,
			distribution.Row{"income_bracket": "<$50K", "mean_amount": "6000"},
			distribution.Row{"income_bracket": "$50K+", "mean_amount": "14000"},
		),
		distribution.StepchildPatterns: table(distribution.StepchildPatterns,
			distribution.Row{"pattern": "step_only", "weighted_count": "30"},
			distribution.Row{"pattern": "bio_only", "weighted_count": "20"},
			distribution.Row{"pattern": "mixed", "weighted_count": "50"},
		),
		distribution.MultigenerationalPatterns: table(distribution.MultigenerationalPatterns,
			distribution.Row{"pattern": "grandparent_with_grandchildren", "weighted_count": "40"},
			distribution.Row{"pattern": "adult_with_parent", "weighted_count": "40"},
			distribution.Row{"pattern": "four_generations", "weighted_count": "20"},
		),
	}

	employment := []distribution.Row{}
	for _, bracket := range []string{"16-19", "20-24", "25-44", "45-54", "55-64", "65-74", "75+"} {
		for _, sex := range []string{"male", "female"} {
			employment = append(employment,
				distribution.Row{"age_bracket": bracket, "sex": sex, "employment_status": "employed", "weight": "60"},
				distribution.Row{"age_bracket": bracket, "sex": sex, "employment_status": "unemployed", "weight": "5"},
				distribution.Row{"age_bracket": bracket, "sex": sex, "employment_status": "not_in_labor_force", "weight": "35"},
			)
		}
	}
	set[distribution.EmploymentByAge] = table(distribution.EmploymentByAge, employment...)

	children := []distribution.Row{}
	ages := []distribution.Row{}
	for _, bracket := range []string{"18-24", "25-34", "35-44", "45-54", "55+"} {
		children = append(children,
			distribution.Row{"parent_age_bracket": bracket, "num_children": "1", "weight": "40"},
			distribution.Row{"parent_age_bracket": bracket, "num_children": "2", "weight": "35"},
			distribution.Row{"parent_age_bracket": bracket, "num_children": "3+", "weight": "25"},
		)
		ages = append(ages,
			distribution.Row{"parent_age_bracket": bracket, "child_age_group": "<5", "weight": "30"},
			distribution.Row{"parent_age_bracket": bracket, "child_age_group": "5-12", "weight": "45"},
			distribution.Row{"parent_age_bracket": bracket, "child_age_group": "13-17", "weight": "25"},
		)
	}
	set[distribution.ChildrenByParentAge] = table(distribution.ChildrenByParentAge, children...)
	set[distribution.ChildAgeDistributions] = table(distribution.ChildAgeDistributions, ages...)
	return set
}
