// Package match implements fuzzy matching and resolution for noisy
// cataloged terms: approximate candidate search over a term population,
// greedy population-shrinking deduplication, and a deterministic rule
// engine that decides whether a candidate pair is a spelling variant, a
// genuine mismatch, or needs manual review.
package match

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/hbollon/go-edlib"
)

// Metric selects the string-distance capability backing candidate search.
type Metric string

const (
	// MetricLevenshtein is edit distance normalized by the longer term.
	MetricLevenshtein Metric = "levenshtein"
	// MetricJaroWinkler favors shared prefixes, which suits game titles
	// where cataloging noise concentrates at the tail.
	MetricJaroWinkler Metric = "jaro-winkler"
)

// ParseMetric validates a metric name from config or CLI input.
func ParseMetric(name string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(name))) {
	case MetricLevenshtein, "":
		return MetricLevenshtein, nil
	case MetricJaroWinkler:
		return MetricJaroWinkler, nil
	}
	return "", fmt.Errorf("unknown distance metric %q (want %q or %q)", name, MetricLevenshtein, MetricJaroWinkler)
}

// Distance returns the normalized distance between two terms in [0,1]
// under the given metric: 0 is identical, 1 is maximally different.
// Degenerate input (either term empty) yields NaN; an undefined distance
// never counts as a match.
func Distance(metric Metric, a, b string) float64 {
	if a == "" || b == "" {
		return math.NaN()
	}
	if metric == MetricJaroWinkler {
		return 1 - float64(edlib.JaroWinklerSimilarity(a, b))
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(maxLen)
}
