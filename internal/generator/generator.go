// Package generator builds synthetic households in five ordered stages:
// structure, adults, children, income and expenses. Every stage draws from an
// explicit sampling.Source so a household is fully determined by its seed.
package generator

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/model"
	"github.com/dukerupert/hhsynth/internal/sampling"
)

var (
	// ErrFatalDataMissing means the required household_patterns table is
	// missing or unusable for the requested region and period.
	ErrFatalDataMissing = errors.New("required distribution data missing")
	// ErrInvalidRequest covers unknown pattern or complexity names, patterns
	// absent from the data and out-of-range batch sizes.
	ErrInvalidRequest = errors.New("invalid generation request")
)

// newID derives a UUID from the household's stream.
func newID(src *sampling.Source) string {
	id, err := uuid.NewRandomFromReader(src)
	if err != nil {
		return uuid.Nil.String()
	}
	return id.String()
}

// fallback records that a stage used its built-in default instead of a table.
func fallback(logger *slog.Logger, what string) {
	logger.Debug("degraded sampling", "fallback", what)
}

// bracketRows returns the rows of t in the first bracket of field that contains v.
func bracketRows(t distribution.Table, field string, v int) (distribution.Table, bool) {
	b := sampling.FindMatchingBracket(float64(v), t.Distinct(field), "")
	if b == "" {
		return nil, false
	}
	rows := distribution.Where(t, field, b)
	return rows, rows.Len() > 0
}

// sampleIn draws a weighted row from the bracket of field containing v.
func sampleIn(src *sampling.Source, dists distribution.Set, table, field string, v int) (distribution.Row, bool) {
	t, ok := dists.Get(table)
	if !ok {
		return nil, false
	}
	rows, ok := bracketRows(t, field, v)
	if !ok {
		return nil, false
	}
	row, err := sampling.WeightedSample(src, rows)
	if err != nil {
		return nil, false
	}
	return row, true
}

// firstIn returns the first row in the bracket of field containing v.
func firstIn(dists distribution.Set, table, field string, v int) (distribution.Row, bool) {
	t, ok := dists.Get(table)
	if !ok {
		return nil, false
	}
	rows, ok := bracketRows(t, field, v)
	if !ok {
		return nil, false
	}
	return rows.Row(0), true
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// capAmount rounds v and clamps it to [0, limit].
func capAmount(v float64, limit int) int {
	return clamp(sampling.Round(v), 0, limit)
}

func youngest(people []*model.Person) *model.Person {
	var out *model.Person
	for _, p := range people {
		if out == nil || p.Age < out.Age {
			out = p
		}
	}
	return out
}

func oldest(people []*model.Person) *model.Person {
	var out *model.Person
	for _, p := range people {
		if out == nil || p.Age > out.Age {
			out = p
		}
	}
	return out
}
