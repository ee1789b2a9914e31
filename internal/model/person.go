package model

import (
	"encoding/json"
	"strings"
)

type Relationship string

const (
	Householder      Relationship = "householder"
	Spouse           Relationship = "spouse"
	UnmarriedPartner Relationship = "unmarried_partner"
	Parent           Relationship = "parent"
	OtherRelative    Relationship = "other_relative"
	BiologicalChild  Relationship = "biological_child"
	Stepchild        Relationship = "stepchild"
	Grandchild       Relationship = "grandchild"
)

type Sex string

const (
	Male   Sex = "M"
	Female Sex = "F"
)

// ParseSex accepts "M"/"F" and "male"/"female".
func ParseSex(s string) (Sex, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return Male, true
	case "f", "female":
		return Female, true
	}
	return "", false
}

// Opposite returns the other sex.
func (s Sex) Opposite() Sex {
	if s == Male {
		return Female
	}
	return Male
}

// Word returns the lowercase long form used by the demographic tables.
func (s Sex) Word() string {
	if s == Male {
		return "male"
	}
	return "female"
}

type EmploymentStatus string

const (
	Employed        EmploymentStatus = "employed"
	Unemployed      EmploymentStatus = "unemployed"
	NotInLaborForce EmploymentStatus = "not_in_labor_force"
)

func ParseEmploymentStatus(s string) (EmploymentStatus, bool) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_") {
	case "employed":
		return Employed, true
	case "unemployed":
		return Unemployed, true
	case "not_in_labor_force", "nilf":
		return NotInLaborForce, true
	}
	return "", false
}

// Education levels. The first eight apply to adults; the rest are the
// grade-based levels assigned to children.
const (
	LessThanHS       = "less_than_hs"
	HighSchool       = "high_school"
	SomeCollege      = "some_college"
	Associates       = "associates"
	Bachelors        = "bachelors"
	Masters          = "masters"
	Professional     = "professional"
	Doctorate        = "doctorate"
	NoSchooling      = "none"
	Preschool        = "preschool"
	ElementaryMiddle = "elementary_middle"
)

const (
	RaceWhite     = "white"
	RaceTwoOrMore = "two_or_more"
)

type Person struct {
	ID               string           `json:"person_id"`
	Relationship     Relationship     `json:"relationship"`
	Age              int              `json:"age"`
	Sex              Sex              `json:"sex"`
	Race             string           `json:"race"`
	HispanicOrigin   bool             `json:"hispanic_origin"`
	EmploymentStatus EmploymentStatus `json:"employment_status"`
	Education        string           `json:"education"`
	OccupationCode   string           `json:"-"`
	OccupationTitle  string           `json:"-"`
	HasDisability    bool             `json:"has_disability"`

	WageIncome             int `json:"wage_income"`
	SelfEmploymentIncome   int `json:"self_employment_income"`
	UnemploymentIncome     int `json:"unemployment_income"`
	SocialSecurityIncome   int `json:"social_security_income"`
	RetirementIncome       int `json:"retirement_income"`
	InterestIncome         int `json:"interest_income"`
	DividendIncome         int `json:"dividend_income"`
	OtherIncome            int `json:"other_income"`
	PublicAssistanceIncome int `json:"public_assistance_income"`

	StudentLoanInterest int `json:"student_loan_interest"`
	EducatorExpenses    int `json:"educator_expenses"`
	IRAContributions    int `json:"ira_contributions"`
}

func (p *Person) IsAdult() bool    { return p.Age >= 18 }
func (p *Person) IsEmployed() bool { return p.EmploymentStatus == Employed }
func (p *Person) IsElderly() bool  { return p.Age >= 65 }

// TotalIncome sums every income source.
func (p *Person) TotalIncome() int {
	return p.WageIncome + p.SelfEmploymentIncome + p.UnemploymentIncome +
		p.SocialSecurityIncome + p.RetirementIncome + p.InterestIncome +
		p.DividendIncome + p.OtherIncome + p.PublicAssistanceIncome
}

// MajorGroup returns the two-digit SOC major group of the occupation, or "".
func (p *Person) MajorGroup() string {
	return SOCMajorGroup(p.OccupationCode)
}

// SOCMajorGroup returns the first two digits of a SOC code such as "29-1141".
func SOCMajorGroup(code string) string {
	code = strings.ReplaceAll(strings.TrimSpace(code), "-", "")
	if len(code) < 2 {
		return ""
	}
	return code[:2]
}

// MarshalJSON adds the derived fields. Occupation keys are always present
// and null for members without an occupation.
func (p Person) MarshalJSON() ([]byte, error) {
	type person Person
	return json.Marshal(struct {
		person
		OccupationCode  *string `json:"occupation_code"`
		OccupationTitle *string `json:"occupation_title"`
		TotalIncome     int     `json:"total_income"`
		IsAdult         bool    `json:"is_adult"`
	}{person(p), nullable(p.OccupationCode), nullable(p.OccupationTitle), p.TotalIncome(), p.IsAdult()})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
