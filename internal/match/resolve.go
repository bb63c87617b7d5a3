package match

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// DefaultResolveConcurrency is the default parallel fan-out for batch
// cluster resolution. Clusters are disjoint once deduplication is done,
// so resolution needs no synchronization beyond result placement.
const DefaultResolveConcurrency = 4

// Outcome classifies one pairwise decision.
type Outcome int

const (
	// OutcomeReview marks an ambiguous pair that needs a human.
	OutcomeReview Outcome = iota
	// OutcomeMatch marks a confirmed spelling/formatting variant.
	OutcomeMatch
	// OutcomeMismatch marks a confirmed pair of distinct terms.
	OutcomeMismatch
)

// Resolution is the decision for one source/candidate pair. After a
// reverse-match, Source is the candidate and Match the original source:
// whichever original carries more surface detail becomes canonical.
type Resolution struct {
	Source  string
	Match   string // retained partner; empty when there is nothing to retain
	Outcome Outcome
}

// ClusterVerdict folds every pairwise resolution of one candidate set
// into a single accept/reject decision. AutoAccept is true only when
// every retained pairwise resolution was a confirmed match.
type ClusterVerdict struct {
	Source     string
	Matches    []string
	AutoAccept bool
	// Overflow carries the promiscuous-source flag through to the audit
	// trail, so capped clusters stay visible instead of vanishing.
	Overflow bool
}

// SerialMarkers are the volume/episode/number tokens the upstream
// numeral standardization emits. Rule 4 depends on this exact output
// vocabulary: if the upstream normalizer changes its spelling, this set
// must change with it.
var SerialMarkers = []string{"volume", "episode", "number"}

var serialMarkerRe = regexp.MustCompile(`(?:` + strings.Join(SerialMarkers, "|") + `) ?[0-9]`)

// ResolvePair decides whether candidate is a spelling variant of source.
// An empty candidate means the source had none (or its matches were
// discarded as overflow) and goes straight to review.
//
// The rules run in fixed order; the first applicable one wins:
//
//  1. Absent candidate → review, source unchanged.
//  2. Equal after stripping punctuation and whitespace → confirmed
//     match; the richer original becomes canonical (rune count, then
//     punctuation count, final tie → review).
//  3. Also equal after removing digits → confirmed mismatch; differing
//     only by a number is almost never an intended spelling variant.
//  4. Both terms carry a serial marker and the markers' digit-stripped
//     indicator texts differ → confirmed mismatch.
//  5. Anything else → review, pair preserved.
//
// Rules 3 and 4 only ever downgrade ambiguous pairs to mismatches; the
// only path to a confirmed match is the stripped-equality check.
func ResolvePair(source, candidate string) Resolution {
	if candidate == "" {
		return Resolution{Source: source, Outcome: OutcomeReview}
	}

	srcBare := stripNonAlnum(source)
	candBare := stripNonAlnum(candidate)

	if srcBare == candBare {
		switch richerOf(source, candidate) {
		case source:
			return Resolution{Source: source, Match: candidate, Outcome: OutcomeMatch}
		case candidate:
			return Resolution{Source: candidate, Match: source, Outcome: OutcomeMatch}
		}
		return Resolution{Source: source, Match: candidate, Outcome: OutcomeReview}
	}

	if stripDigits(srcBare) == stripDigits(candBare) {
		return Resolution{Source: source, Outcome: OutcomeMismatch}
	}

	// A confirmed mismatch needs the serial indicators themselves to
	// differ. Identical indicators with a differing body may still be a
	// spelling variant and stay ambiguous.
	srcMarker := serialMarkerRe.FindString(strings.ToLower(source))
	candMarker := serialMarkerRe.FindString(strings.ToLower(candidate))
	if srcMarker != "" && candMarker != "" && stripDigits(srcMarker) != stripDigits(candMarker) {
		return Resolution{Source: source, Outcome: OutcomeMismatch}
	}

	return Resolution{Source: source, Match: candidate, Outcome: OutcomeReview}
}

// ResolveCluster folds ResolvePair over every candidate in the set. The
// running source may be replaced mid-fold by a reverse-match, so later
// comparisons always use the most-recently-accepted canonical form.
// Confirmed mismatches are discarded; a single surviving review reverts
// the whole cluster to its original source and candidates, because a
// cluster is only ever auto-resolved as a unit.
func ResolveCluster(set CandidateSet) ClusterVerdict {
	if set.Overflow {
		return ClusterVerdict{Source: set.Source, Overflow: true}
	}
	if len(set.Matches) == 0 {
		// Lone source: trivially canonical, nothing to review.
		return ClusterVerdict{Source: set.Source, AutoAccept: true}
	}

	source := set.Source
	kept := make([]string, 0, len(set.Matches))
	needsReview := false

	for _, candidate := range set.Matches {
		res := ResolvePair(source, candidate)
		switch res.Outcome {
		case OutcomeMismatch:
			continue
		case OutcomeMatch:
			kept = append(kept, res.Match)
			source = res.Source
		default:
			needsReview = true
		}
	}

	if needsReview {
		return ClusterVerdict{
			Source:  set.Source,
			Matches: append([]string(nil), set.Matches...),
		}
	}
	if len(kept) == 0 {
		// Every candidate was a confirmed mismatch.
		return ClusterVerdict{Source: set.Source, AutoAccept: true}
	}
	return ClusterVerdict{Source: source, Matches: kept, AutoAccept: true}
}

// ResolveClusters resolves candidate sets concurrently. Results keep the
// input order; each goroutine writes only its own slot.
func ResolveClusters(sets []CandidateSet, concurrency int) []ClusterVerdict {
	if concurrency <= 0 {
		concurrency = DefaultResolveConcurrency
	}

	verdicts := make([]ClusterVerdict, len(sets))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := range sets {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			verdicts[i] = ResolveCluster(sets[i])
		}(i)
	}

	wg.Wait()
	return verdicts
}

// stripNonAlnum removes everything except letters and digits and folds
// case, collapsing punctuation, whitespace, and casing differences
// between catalog entries.
func stripNonAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func stripDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// richerOf picks the original string carrying more surface detail: more
// raw characters, then more punctuation, then more capitalization. The
// richer form is least likely to have been produced by information-losing
// cataloging. Returns "" on a full tie.
func richerOf(a, b string) string {
	al, bl := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if al != bl {
		if al > bl {
			return a
		}
		return b
	}
	ap, bp := punctCount(a), punctCount(b)
	if ap != bp {
		if ap > bp {
			return a
		}
		return b
	}
	au, bu := upperCount(a), upperCount(b)
	if au != bu {
		if au > bu {
			return a
		}
		return b
	}
	return ""
}

func punctCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			n++
		}
	}
	return n
}

func upperCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			n++
		}
	}
	return n
}
