// Package complexity scores how advanced a natural-language question is.
package complexity

import (
	"regexp"
	"strings"
)

// Classification buckets a score.
type Classification string

const (
	Basic        Classification = "basic"
	Intermediate Classification = "intermediate"
	Advanced     Classification = "advanced"
)

// Signal weights.
const (
	WeightAdvanced    = 4
	WeightAnalytic    = 2
	WeightConditional = 1
	WeightGeospatial  = 2
	WeightLength      = 2
	WeightParens      = 1

	// LengthThreshold is the character count above which a question counts as long.
	LengthThreshold = 140
	// ParenThreshold is the parenthesis count above which a question counts as nested.
	ParenThreshold = 4
)

// Signal names reported in Estimate.Signals.
const (
	SignalAdvanced    = "advanced"
	SignalAnalytic    = "analytic"
	SignalConditional = "conditional"
	SignalGeospatial  = "geospatial"
	SignalLength      = "length"
	SignalParens      = "parens"
)

var (
	advancedRe    = regexp.MustCompile(`\b(join|joins|joined|row_number|dense_rank|rank|lag|lead|ntile|window function|regression|correlation|correlate|anova|clustering|cluster|forecast|anomaly|anomalies)\b`)
	overRe        = regexp.MustCompile(`\bover\s*\(`)
	analyticRe    = regexp.MustCompile(`\b(avg|average|mean|median|count|sum|min|max|minimum|maximum|percentile|quantile|partition|order by|group by|stddev|std dev|variance|aggregate)\b`)
	conditionalRe = regexp.MustCompile(`(<=|>=|<>|!=|<|>|=)|\blike\b|\bbetween\b|\bin\s*\(|\bcase\s+when\b`)
	geospatialRe  = regexp.MustCompile(`\b(polygon|bounding box|bbox|distance|haversine|radius|nearest|geofence|st_within|st_dwithin|great circle)\b`)
)

// Result is the outcome of scoring one question.
type Result struct {
	Score          int            `json:"score"`
	Delta          int            `json:"delta"`
	Classification Classification `json:"classification"`
	Signals        []string       `json:"signals"`
}

// Estimate scores query. Matching is case-insensitive and each signal counts once.
func Estimate(query string) Result {
	q := strings.ToLower(query)
	var e Result
	add := func(signal string, weight int) {
		e.Score += weight
		e.Signals = append(e.Signals, signal)
	}
	if advancedRe.MatchString(q) || overRe.MatchString(q) {
		add(SignalAdvanced, WeightAdvanced)
	}
	if analyticRe.MatchString(q) {
		add(SignalAnalytic, WeightAnalytic)
	}
	if conditionalRe.MatchString(q) {
		add(SignalConditional, WeightConditional)
	}
	if geospatialRe.MatchString(q) {
		add(SignalGeospatial, WeightGeospatial)
	}
	if len([]rune(query)) > LengthThreshold {
		add(SignalLength, WeightLength)
	}
	if strings.Count(q, "(")+strings.Count(q, ")") > ParenThreshold {
		add(SignalParens, WeightParens)
	}
	e.Classification, e.Delta = Classify(e.Score)
	return e
}

// Classify maps a score to its classification and the delta applied to the
// running session score. Plain questions decay the running score.
func Classify(score int) (Classification, int) {
	switch {
	case score >= 6:
		return Advanced, 3
	case score >= 4:
		return Intermediate, 2
	case score >= 2:
		return Intermediate, 1
	case score >= 1:
		return Basic, 1
	default:
		return Basic, -1
	}
}
