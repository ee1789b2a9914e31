package sampling

import (
	"strconv"
	"strings"
)

// SampleGap draws a signed year offset from an age-gap label: "0", "-5_to_3",
// "10_or_more" or "-10_or_less". "N_or_less" spans the five years up to N.
// An unparseable label yields 0.
func SampleGap(src *Source, raw string) int {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "" || s == "0":
		return 0
	case strings.HasSuffix(s, "_or_less"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "_or_less"))
		if err != nil {
			return 0
		}
		return src.IntRange(n-5, n)
	case strings.HasSuffix(s, "_or_more"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "_or_more"))
		if err != nil {
			return 0
		}
		return n + int(src.Exponential(GapTail))
	case strings.Contains(s, "_to_"):
		lo, hi, _ := strings.Cut(s, "_to_")
		a, err1 := strconv.Atoi(lo)
		b, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil {
			return 0
		}
		if b < a {
			a, b = b, a
		}
		return src.IntRange(a, b)
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0
		}
		return n
	}
}
