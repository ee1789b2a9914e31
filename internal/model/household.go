package model

import "encoding/json"

type Household struct {
	ID               string     `json:"household_id"`
	Region           string     `json:"state"`
	Period           string     `json:"year"`
	Pattern          Pattern    `json:"pattern"`
	SubPattern       SubPattern `json:"-"`
	ExpectedAdults   CountRange `json:"-"`
	ExpectedChildren CountRange `json:"-"`
	Complexity       Complexity `json:"expected_complexity"`
	Members          []*Person  `json:"members"`
	IsHomeowner      bool       `json:"is_homeowner"`

	PropertyTaxes           int `json:"property_taxes"`
	MortgageInterest        int `json:"mortgage_interest"`
	StateIncomeTax          int `json:"state_income_tax"`
	MedicalExpenses         int `json:"medical_expenses"`
	CharitableContributions int `json:"charitable_contributions"`

	StudentLoanInterest int `json:"student_loan_interest"`
	EducatorExpenses    int `json:"educator_expenses"`
	IRAContributions    int `json:"ira_contributions"`

	ChildCareExpenses int `json:"child_care_expenses"`
	EducationExpenses int `json:"education_expenses"`

	TotalItemizedDeductions  int `json:"total_itemized_deductions"`
	TotalAboveLineDeductions int `json:"total_above_line_deductions"`
}

// NewHousehold returns an empty household carrying the metadata of pattern.
func NewHousehold(id, region, period string, pattern Pattern) *Household {
	meta := pattern.Meta()
	return &Household{
		ID:               id,
		Region:           region,
		Period:           period,
		Pattern:          pattern,
		ExpectedAdults:   meta.Adults,
		ExpectedChildren: meta.Children,
		Complexity:       meta.Complexity,
	}
}

func (h *Household) Adults() []*Person {
	var out []*Person
	for _, p := range h.Members {
		if p.IsAdult() {
			out = append(out, p)
		}
	}
	return out
}

func (h *Household) Children() []*Person {
	var out []*Person
	for _, p := range h.Members {
		if !p.IsAdult() {
			out = append(out, p)
		}
	}
	return out
}

// Find returns the first member with relationship r.
func (h *Household) Find(r Relationship) *Person {
	for _, p := range h.Members {
		if p.Relationship == r {
			return p
		}
	}
	return nil
}

func (h *Household) Householder() *Person { return h.Find(Householder) }

func (h *Household) AdultCount() int { return len(h.Adults()) }
func (h *Household) ChildCount() int { return len(h.Children()) }
func (h *Household) IsMarried() bool { return h.Find(Spouse) != nil }

// TotalIncome sums the income of every member.
func (h *Household) TotalIncome() int {
	total := 0
	for _, p := range h.Members {
		total += p.TotalIncome()
	}
	return total
}

// MarshalJSON adds the derived totals. The sub-pattern key is always
// present and null outside multigenerational households.
func (h Household) MarshalJSON() ([]byte, error) {
	type household Household
	var sub *SubPattern
	if h.SubPattern != "" {
		sub = &h.SubPattern
	}
	var expectedAdults any = []int{h.ExpectedAdults.Min, h.ExpectedAdults.Max}
	if h.ExpectedAdults.Min == h.ExpectedAdults.Max {
		expectedAdults = h.ExpectedAdults.Min
	}
	if h.Members == nil {
		h.Members = []*Person{}
	}
	return json.Marshal(struct {
		household
		SubPattern            *SubPattern `json:"multigenerational_subpattern"`
		ExpectedAdults        any   `json:"expected_adults"`
		ExpectedChildrenRange []int `json:"expected_children_range"`
		AdultCount            int   `json:"adult_count"`
		ChildCount            int   `json:"child_count"`
		TotalHouseholdIncome  int   `json:"total_household_income"`
		IsMarried             bool  `json:"is_married"`
	}{
		household:             household(h),
		SubPattern:            sub,
		ExpectedAdults:        expectedAdults,
		ExpectedChildrenRange: []int{h.ExpectedChildren.Min, h.ExpectedChildren.Max},
		AdultCount:            h.AdultCount(),
		ChildCount:            h.ChildCount(),
		TotalHouseholdIncome:  h.TotalIncome(),
		IsMarried:             h.IsMarried(),
	})
}
