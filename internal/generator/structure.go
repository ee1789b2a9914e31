package generator

import (
	"fmt"
	"log/slog"

	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/model"
	"github.com/dukerupert/hhsynth/internal/sampling"
)

// StructureOptions narrows the pattern draw. Zero values mean unrestricted.
type StructureOptions struct {
	Region     string
	Period     string
	Complexity model.Complexity
	Pattern    model.Pattern
}

// StructureSelector picks the household pattern.
type StructureSelector struct {
	logger *slog.Logger
}

func NewStructureSelector(logger *slog.Logger) *StructureSelector {
	return &StructureSelector{logger: logger.With("stage", "structure")}
}

// Select draws a pattern from household_patterns and returns an empty
// household carrying its metadata.
func (s *StructureSelector) Select(src *sampling.Source, dists distribution.Set, opts StructureOptions) (*model.Household, error) {
	t, ok := dists.Get(distribution.HouseholdPatterns)
	if !ok {
		return nil, fmt.Errorf("%w: %s for %s/%s", ErrFatalDataMissing, distribution.HouseholdPatterns, opts.Region, opts.Period)
	}

	candidates := t
	if opts.Pattern != "" {
		candidates = candidates.Filter(func(r distribution.Row) bool {
			return patternOf(r) == opts.Pattern
		})
		if candidates.Len() == 0 {
			return nil, fmt.Errorf("%w: pattern %q not present in data for %s/%s", ErrInvalidRequest, opts.Pattern, opts.Region, opts.Period)
		}
	}
	if opts.Complexity != "" {
		candidates = candidates.Filter(func(r distribution.Row) bool {
			return patternOf(r).Meta().Complexity == opts.Complexity
		})
		if candidates.Len() == 0 {
			return nil, fmt.Errorf("%w: no %s patterns in data for %s/%s", ErrInvalidRequest, opts.Complexity, opts.Region, opts.Period)
		}
	}

	row, err := sampling.WeightedSample(src, candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFatalDataMissing, err)
	}

	pattern := patternOf(row)
	hh := model.NewHousehold(newID(src), opts.Region, opts.Period, pattern)
	s.logger.Debug("pattern selected", "pattern", pattern, "raw", row.String("pattern"))
	return hh, nil
}

// patternOf maps a data row to a pattern; names outside the known set become PatternOther.
func patternOf(r distribution.Row) model.Pattern {
	p, ok := model.ParsePattern(r.String("pattern"))
	if !ok {
		return model.PatternOther
	}
	return p
}

// PatternInfo summarizes one pattern in a region's data.
type PatternInfo struct {
	Pattern          model.Pattern    `json:"pattern"`
	Weight           float64          `json:"weight"`
	Percentage       float64          `json:"percentage"`
	Complexity       model.Complexity `json:"complexity"`
	Description      string           `json:"description"`
	ExpectedAdults   []int            `json:"expected_adults"`
	ExpectedChildren []int            `json:"expected_children"`
}

// SummarizePatterns aggregates household_patterns weights by pattern.
func SummarizePatterns(dists distribution.Set) ([]PatternInfo, error) {
	t, ok := dists.Get(distribution.HouseholdPatterns)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFatalDataMissing, distribution.HouseholdPatterns)
	}

	weights := make(map[model.Pattern]float64)
	var total float64
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		w, _ := r.Float(t.WeightField())
		if w <= 0 {
			continue
		}
		weights[patternOf(r)] += w
		total += w
	}

	var out []PatternInfo
	for _, p := range model.Patterns() {
		w, ok := weights[p]
		if !ok {
			continue
		}
		meta := p.Meta()
		info := PatternInfo{
			Pattern:          p,
			Weight:           w,
			Complexity:       meta.Complexity,
			Description:      meta.Description,
			ExpectedAdults:   []int{meta.Adults.Min, meta.Adults.Max},
			ExpectedChildren: []int{meta.Children.Min, meta.Children.Max},
		}
		if total > 0 {
			info.Percentage = w / total * 100
		}
		out = append(out, info)
	}
	return out, nil
}
