package sampling

import (
	"errors"
	"fmt"
	"math"

	"github.com/dukerupert/hhsynth/internal/distribution"
)

var (
	ErrEmptyTable = errors.New("empty table")
	ErrZeroWeight = errors.New("no positive weight")
)

// WeightedSample draws one row in proportion to the table's weight field.
func WeightedSample(src *Source, t distribution.Table) (distribution.Row, error) {
	return WeightedSampleBy(src, t, t.WeightField())
}

// WeightedSampleBy draws one row in proportion to field. Missing, negative and
// unparseable weights count as zero; a row with zero weight is never chosen.
func WeightedSampleBy(src *Source, t distribution.Table, field string) (distribution.Row, error) {
	if t == nil || t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	weights := make([]float64, t.Len())
	for i := range weights {
		w, _ := t.Row(i).Float(field)
		weights[i] = w
	}
	i, err := WeightedIndex(src, weights)
	if err != nil {
		return nil, fmt.Errorf("sample %s by %s: %w", t.Name(), field, err)
	}
	return t.Row(i), nil
}

// WeightedIndex picks an index in proportion to weights.
func WeightedIndex(src *Source, weights []float64) (int, error) {
	if len(weights) == 0 {
		return 0, ErrEmptyTable
	}

	var total, largest float64
	for _, w := range weights {
		if w > 0 && !math.IsInf(w, 1) {
			total += w
			largest = math.Max(largest, w)
		}
	}
	if total <= 0 {
		return 0, ErrZeroWeight
	}

	scale := 1.0
	if math.IsInf(total, 1) {
		scale = 1 / largest
		total = 0
		for _, w := range weights {
			if w > 0 && !math.IsInf(w, 1) {
				total += w * scale
			}
		}
	}

	target := src.Float64() * total
	last := -1
	var cum float64
	for i, w := range weights {
		if !(w > 0) || math.IsInf(w, 1) {
			continue
		}
		last = i
		cum += w * scale
		if target < cum {
			return i, nil
		}
	}
	return last, nil
}

// Choose picks one of values with the matching probabilities.
func Choose[T any](src *Source, values []T, probs []float64) T {
	i, err := WeightedIndex(src, probs)
	if err != nil {
		return values[0]
	}
	return values[i]
}
