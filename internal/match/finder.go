package match

import (
	"math"
	"unicode"
	"unicode/utf8"
)

// FindOptions configures one candidate search.
type FindOptions struct {
	Metric      Metric
	MaxDistance float64 // a population member matches iff distance <= MaxDistance
	MinLength   int     // terms shorter than this many runes are never tested; 0 tests everything
	SkipNumeric bool    // terms consisting solely of digits are never tested
}

// FindResult holds the candidates found for one term.
type FindResult struct {
	// IsMatch flags each population member, in population order.
	// Callers use it to subset the population without re-scanning.
	IsMatch []bool
	// Matches are the matched members, in population order.
	Matches []string
}

// Find returns the members of population within MaxDistance of term.
//
// Very short and purely numeric terms produce unreliable similarity
// signals ("2" is one edit from "3" and from "22"), so they are skipped
// outright before any distance is computed when the corresponding
// option is set.
func Find(term string, population []string, opts FindOptions) FindResult {
	result := FindResult{IsMatch: make([]bool, len(population))}

	if opts.MinLength > 0 && utf8.RuneCountInString(term) < opts.MinLength {
		return result
	}
	if opts.SkipNumeric && isAllDigits(term) {
		return result
	}

	for i, member := range population {
		d := Distance(opts.Metric, term, member)
		if math.IsNaN(d) || d > opts.MaxDistance {
			continue
		}
		result.IsMatch[i] = true
		result.Matches = append(result.Matches, member)
	}
	return result
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
