package distribution

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// Row is one record of a distribution table. Values are stored as text and
// converted on access, so a row survives any of the storage backends.
type Row map[string]string

// String returns the trimmed value of field, or "" when absent.
func (r Row) String(field string) string {
	return strings.TrimSpace(r[field])
}

// Has reports whether field is present and non-empty.
func (r Row) Has(field string) bool {
	return r.String(field) != ""
}

// Float parses field as a finite number.
func (r Row) Float(field string) (float64, bool) {
	s := strings.ReplaceAll(r.String(field), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int parses field as a number and truncates it toward zero.
func (r Row) Int(field string) (int, bool) {
	f, ok := r.Float(field)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Table is a named, weighted collection of rows.
type Table interface {
	Name() string
	WeightField() string
	Len() int
	Row(i int) Row
	Filter(keep func(Row) bool) Table
	Distinct(field string) []string
}

// MemTable is the in-memory Table used by every provider.
type MemTable struct {
	name        string
	weightField string
	rows        []Row
}

// NewTable builds a table. An empty weightField selects the catalog default for name.
func NewTable(name, weightField string, rows []Row) *MemTable {
	if weightField == "" {
		weightField = DefaultWeightField(name)
	}
	return &MemTable{name: name, weightField: weightField, rows: rows}
}

func (t *MemTable) Name() string        { return t.name }
func (t *MemTable) WeightField() string { return t.weightField }
func (t *MemTable) Len() int            { return len(t.rows) }
func (t *MemTable) Row(i int) Row       { return t.rows[i] }

// Filter returns the rows for which keep returns true. Rows are shared, not copied.
func (t *MemTable) Filter(keep func(Row) bool) Table {
	var out []Row
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return &MemTable{name: t.name, weightField: t.weightField, rows: out}
}

// Distinct returns the non-empty values of field in first-seen order.
func (t *MemTable) Distinct(field string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.rows {
		v := r.String(field)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Where keeps rows whose field equals value, ignoring case.
func Where(t Table, field, value string) Table {
	return t.Filter(func(r Row) bool {
		return strings.EqualFold(r.String(field), value)
	})
}

// Rows copies the rows of t into a slice.
func Rows(t Table) []Row {
	out := make([]Row, t.Len())
	for i := range out {
		out[i] = t.Row(i)
	}
	return out
}

// Set is the collection of tables available for one region and period.
type Set map[string]Table

// Get returns the named table. Absent and empty tables both report false.
func (s Set) Get(name string) (Table, bool) {
	t, ok := s[name]
	if !ok || t == nil || t.Len() == 0 {
		return nil, false
	}
	return t, true
}

// Provider loads the distribution tables for a region and time period.
type Provider interface {
	Load(ctx context.Context, region, period string) (Set, error)
}

// RegionPeriod identifies one loaded dataset.
type RegionPeriod struct {
	Region string `json:"region"`
	Period string `json:"period"`
}

// Catalog lists the datasets a provider can serve.
type Catalog interface {
	ListRegions(ctx context.Context) ([]RegionPeriod, error)
}
