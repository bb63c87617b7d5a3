package match

// DefaultMaxDistance is the distance threshold below which two terms are
// candidate variants of each other.
const DefaultMaxDistance = 0.1

// DefaultMatchCap bounds how many candidates a single source may claim
// before it is treated as promiscuous under AssumeUnique.
const DefaultMatchCap = 10

// CandidateSet pairs a source term with its near-duplicate candidates.
type CandidateSet struct {
	Source string
	// Matches are the candidates within the distance threshold, in
	// population order. Nil when the source had no candidates.
	Matches []string
	// Overflow marks a promiscuous source: its match count exceeded the
	// cap, the matches were discarded, and the population was left
	// unshrunk so legitimate distinct terms were not consumed.
	Overflow bool
}

// DedupeOptions configures a population deduplication run.
type DedupeOptions struct {
	Metric      Metric
	MaxDistance float64
	MinLength   int
	SkipNumeric bool

	// AssumeUnique treats the population as mostly distinct terms: any
	// source matching more than MatchCap members is recorded as Overflow
	// instead of consuming its matches.
	AssumeUnique bool
	MatchCap     int

	// ShrinkPopulation removes matched terms from the remaining
	// population, so a term consumed as a match is never re-evaluated
	// as a source or matched twice.
	ShrinkPopulation bool

	// ProgressFn, when set, is called after each source with the number
	// of terms consumed so far and the population total. Side effect
	// only; it has no bearing on the result.
	ProgressFn func(done, total int)
}

// DefaultDedupeOptions returns the standard settings for title-scale
// populations.
func DefaultDedupeOptions() DedupeOptions {
	return DedupeOptions{
		Metric:           MetricLevenshtein,
		MaxDistance:      DefaultMaxDistance,
		MatchCap:         DefaultMatchCap,
		ShrinkPopulation: true,
	}
}

// Dedupe greedily walks the term population, building one candidate set
// per surviving term. Each iteration removes the head of the remaining
// population as the source and searches the rest for candidates; with
// ShrinkPopulation set, matched terms are removed before the next
// iteration, so every input term ends up as either a source or a match
// exactly once and the walk terminates in at most len(population) steps.
//
// Without shrinking the walk is O(n²) in distance computations; shrinking
// is the intended mitigation for large populations with high duplication.
func Dedupe(population []string, opts DedupeOptions) []CandidateSet {
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = DefaultMaxDistance
	}
	if opts.MatchCap <= 0 {
		opts.MatchCap = DefaultMatchCap
	}

	findOpts := FindOptions{
		Metric:      opts.Metric,
		MaxDistance: opts.MaxDistance,
		MinLength:   opts.MinLength,
		SkipNumeric: opts.SkipNumeric,
	}

	remaining := append([]string(nil), population...)
	total := len(remaining)
	sets := make([]CandidateSet, 0, len(remaining))

	for len(remaining) > 0 {
		source := remaining[0]
		remaining = remaining[1:]

		if len(remaining) == 0 {
			sets = append(sets, CandidateSet{Source: source})
			reportProgress(opts.ProgressFn, total, total)
			break
		}

		found := Find(source, remaining, findOpts)

		switch {
		case opts.AssumeUnique && len(found.Matches) > opts.MatchCap:
			// Promiscuous source: discard its matches and leave the
			// population unshrunk so one over-eager term cannot erase
			// legitimate distinct terms sharing a common pattern.
			sets = append(sets, CandidateSet{Source: source, Overflow: true})
		default:
			sets = append(sets, CandidateSet{Source: source, Matches: found.Matches})
			if opts.ShrinkPopulation && len(found.Matches) > 0 {
				kept := make([]string, 0, len(remaining)-len(found.Matches))
				for i, term := range remaining {
					if !found.IsMatch[i] {
						kept = append(kept, term)
					}
				}
				remaining = kept
			}
		}

		reportProgress(opts.ProgressFn, total-len(remaining), total)
	}

	return sets
}

func reportProgress(fn func(done, total int), done, total int) {
	if fn != nil {
		fn(done, total)
	}
}
