package sampling

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// BracketKind classifies a bracket label.
type BracketKind int

const (
	Scalar   BracketKind = iota // "42"
	OpenLow                     // "<25"
	OpenHigh                    // "65+"
	Range                       // "25-34", "$25-50K"
)

// ErrBadBracket is returned for labels outside the bracket grammar.
var ErrBadBracket = errors.New("unparseable bracket")

// Tail means used when sampling open-high brackets.
const (
	AgeTail      = 10
	DollarTail   = 50000
	ChildAgeTail = 2
	GapTail      = 3
)

// Bracket is a parsed range label. Low and High are inclusive for Range;
// OpenLow and OpenHigh use only Low.
type Bracket struct {
	Raw  string
	Kind BracketKind
	Low  float64
	High float64
}

// ParseBracket parses labels such as "<25", "65+", "25-34", "$25-50K" or "42".
// Dollar signs, commas and spaces are ignored; K and M scale by a thousand
// and a million.
func ParseBracket(raw string) (Bracket, error) {
	s := normalize(raw)
	b := Bracket{Raw: raw}
	if s == "" {
		return b, ErrBadBracket
	}

	switch {
	case strings.HasPrefix(s, "<"):
		n, _, err := parseScaled(s[1:])
		if err != nil {
			return b, ErrBadBracket
		}
		b.Kind, b.Low = OpenLow, n
	case strings.HasSuffix(s, "+"):
		n, _, err := parseScaled(strings.TrimSuffix(s, "+"))
		if err != nil {
			return b, ErrBadBracket
		}
		b.Kind, b.Low = OpenHigh, n
	case strings.Contains(s[1:], "-"):
		i := strings.Index(s[1:], "-") + 1
		lo, loScale, err := parseScaled(s[:i])
		if err != nil {
			return b, ErrBadBracket
		}
		hi, hiScale, err := parseScaled(s[i+1:])
		if err != nil {
			return b, ErrBadBracket
		}
		// "$25-50K" carries its multiplier on the upper end only.
		if loScale == 1 && hiScale != 1 {
			lo *= hiScale
		}
		if hi < lo {
			return b, ErrBadBracket
		}
		b.Kind, b.Low, b.High = Range, lo, hi
	default:
		n, _, err := parseScaled(s)
		if err != nil {
			return b, ErrBadBracket
		}
		b.Kind, b.Low = Scalar, n
	}
	return b, nil
}

func normalize(raw string) string {
	r := strings.NewReplacer("$", "", ",", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(raw)))
}

// parseScaled parses a number with an optional k or m suffix and returns the
// scaled value along with the multiplier applied.
func parseScaled(s string) (float64, float64, error) {
	scale := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		scale, s = 1000, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		scale, s = 1000000, strings.TrimSuffix(s, "m")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, scale, ErrBadBracket
	}
	return v * scale, scale, nil
}

// Contains reports whether v falls inside the bracket.
func (b Bracket) Contains(v float64) bool {
	switch b.Kind {
	case OpenLow:
		return v < b.Low
	case OpenHigh:
		return v >= b.Low
	case Range:
		return v >= b.Low && v <= b.High
	default:
		return v == b.Low
	}
}

// ContainsBelow is Contains with the upper bound of a range excluded. Dollar
// brackets share their boundaries ("$25-50K", "$50-75K"), so a boundary
// value belongs to the higher bracket.
func (b Bracket) ContainsBelow(v float64) bool {
	if b.Kind == Range {
		return v >= b.Low && v < b.High
	}
	return b.Contains(v)
}

// Overlaps reports whether any value in [lo, hi] falls inside the bracket.
func (b Bracket) Overlaps(lo, hi float64) bool {
	switch b.Kind {
	case OpenLow:
		return lo < b.Low
	case OpenHigh:
		return hi >= b.Low
	case Range:
		return b.Low <= hi && b.High >= lo
	default:
		return b.Low >= lo && b.Low <= hi
	}
}

// Sample draws an integer the bracket contains. Open-low brackets draw from
// zero up to their bound, or return the largest integer below a bound at or
// under zero. Open-high brackets add an exponential tail with mean tail to
// their lower bound. A range holding no integer, such as "0.2-0.8", yields
// the integer nearest its midpoint.
func (b Bracket) Sample(src *Source, tail float64) int {
	switch b.Kind {
	case OpenLow:
		top := int(math.Ceil(b.Low)) - 1
		if top < 0 {
			return top
		}
		return src.IntRange(0, top)
	case OpenHigh:
		return int(math.Ceil(b.Low)) + Round(src.Exponential(tail))
	case Range:
		lo, hi := int(math.Ceil(b.Low)), int(math.Floor(b.High))
		if lo > hi {
			return Round((b.Low + b.High) / 2)
		}
		return src.IntRange(lo, hi)
	default:
		return Round(b.Low)
	}
}

// BracketContains reports whether v is inside the bracket labelled raw.
// An unparseable label matches every value.
func BracketContains(raw string, v float64) bool {
	b, err := ParseBracket(raw)
	if err != nil {
		return true
	}
	return b.Contains(v)
}

// BracketOverlaps reports whether the bracket labelled raw intersects [lo, hi].
// An unparseable label overlaps everything.
func BracketOverlaps(raw string, lo, hi float64) bool {
	b, err := ParseBracket(raw)
	if err != nil {
		return true
	}
	return b.Overlaps(lo, hi)
}

// SampleBracket draws an integer from the bracket labelled raw. For an
// unparseable label it falls back to a leading number if there is one and
// reports false.
func SampleBracket(src *Source, raw string, tail float64) (int, bool) {
	b, err := ParseBracket(raw)
	if err != nil {
		return leadingNumber(raw), false
	}
	return b.Sample(src, tail), true
}

func leadingNumber(raw string) int {
	s := normalize(raw)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return int(v)
}

// FindMatchingBracket returns the first candidate containing v, or fallback
// when none does.
func FindMatchingBracket(v float64, candidates []string, fallback string) string {
	for _, c := range candidates {
		if BracketContains(c, v) {
			return c
		}
	}
	return fallback
}

// FindIncomeBracket is FindMatchingBracket for dollar brackets, whose ranges
// exclude their upper bound.
func FindIncomeBracket(v float64, candidates []string, fallback string) string {
	for _, c := range candidates {
		b, err := ParseBracket(c)
		if err != nil || b.ContainsBelow(v) {
			return c
		}
	}
	return fallback
}
