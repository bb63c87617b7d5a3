package match

import (
	"math"
	"testing"
)

func TestDistanceIdenticalTerms(t *testing.T) {
	for _, metric := range []Metric{MetricLevenshtein, MetricJaroWinkler} {
		if d := Distance(metric, "sonic", "sonic"); d != 0 {
			t.Fatalf("%s: expected distance 0 for identical terms, got %f", metric, d)
		}
	}
}

func TestDistanceEmptyTermIsUndefined(t *testing.T) {
	for _, metric := range []Metric{MetricLevenshtein, MetricJaroWinkler} {
		if d := Distance(metric, "", "sonic"); !math.IsNaN(d) {
			t.Fatalf("%s: expected NaN for empty term, got %f", metric, d)
		}
		if d := Distance(metric, "sonic", ""); !math.IsNaN(d) {
			t.Fatalf("%s: expected NaN for empty member, got %f", metric, d)
		}
	}
}

func TestDistanceLevenshteinNormalized(t *testing.T) {
	// One edit across ten runes.
	d := Distance(MetricLevenshtein, "mega man 2", "mega man 3")
	if math.Abs(d-0.1) > 1e-9 {
		t.Fatalf("expected 0.1, got %f", d)
	}

	d = Distance(MetricLevenshtein, "abc", "xyz")
	if d != 1 {
		t.Fatalf("expected 1 for fully distinct terms, got %f", d)
	}
}

func TestDistanceBounds(t *testing.T) {
	pairs := [][2]string{
		{"sonic the hedgehog", "sonic the hedgehog 2"},
		{"final fantasy", "fatal fury"},
		{"a", "zzzzzzzz"},
	}
	for _, metric := range []Metric{MetricLevenshtein, MetricJaroWinkler} {
		for _, p := range pairs {
			d := Distance(metric, p[0], p[1])
			if d < 0 || d > 1 {
				t.Fatalf("%s: distance %f out of [0,1] for %q vs %q", metric, d, p[0], p[1])
			}
		}
	}
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	if err != nil || m != MetricLevenshtein {
		t.Fatalf("expected default levenshtein, got %q, %v", m, err)
	}
	m, err = ParseMetric(" Jaro-Winkler ")
	if err != nil || m != MetricJaroWinkler {
		t.Fatalf("expected jaro-winkler, got %q, %v", m, err)
	}
	if _, err := ParseMetric("soundex"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}
