package match

import (
	"reflect"
	"testing"
)

func TestResolvePairAbsentCandidate(t *testing.T) {
	res := ResolvePair("sonic the hedgehog", "")
	if res.Outcome != OutcomeReview {
		t.Fatalf("expected review for absent candidate, got %v", res.Outcome)
	}
	if res.Source != "sonic the hedgehog" || res.Match != "" {
		t.Fatalf("expected source unchanged with no match, got %+v", res)
	}
}

func TestResolvePairPunctuationVariantRicherWins(t *testing.T) {
	res := ResolvePair("007 - Nightfire", "007: Nightfire")
	if res.Outcome != OutcomeMatch {
		t.Fatalf("expected confirmed match, got %+v", res)
	}
	// "007 - Nightfire" has more raw characters and stays canonical.
	if res.Source != "007 - Nightfire" || res.Match != "007: Nightfire" {
		t.Fatalf("expected richer original as canonical source, got %+v", res)
	}
}

func TestResolvePairReverseMatchWhenCandidateRicher(t *testing.T) {
	res := ResolvePair("007: Nightfire", "007 - Nightfire")
	if res.Outcome != OutcomeMatch {
		t.Fatalf("expected confirmed match, got %+v", res)
	}
	if res.Source != "007 - Nightfire" || res.Match != "007: Nightfire" {
		t.Fatalf("expected reverse-match to promote richer candidate, got %+v", res)
	}
}

func TestResolvePairRule2Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"007 - Nightfire", "007: Nightfire"},
		{"sonic the hedgehog", "Sonic The Hedgehog"},
		{"earthbound!", "earthbound?"},
	}
	for _, p := range pairs {
		ab := ResolvePair(p[0], p[1])
		ba := ResolvePair(p[1], p[0])
		if ab.Outcome != ba.Outcome {
			t.Fatalf("asymmetric outcome for %q/%q: %v vs %v", p[0], p[1], ab.Outcome, ba.Outcome)
		}
		if ab.Outcome == OutcomeMatch && ab.Source != ba.Source {
			t.Fatalf("asymmetric canonical choice for %q/%q: %q vs %q", p[0], p[1], ab.Source, ba.Source)
		}
	}
}

func TestResolvePairCaseDifferenceIsAMatch(t *testing.T) {
	res := ResolvePair("Sonic the Hedgehog", "Sonic The Hedgehog")
	if res.Outcome != OutcomeMatch {
		t.Fatalf("expected case-only difference to match, got %+v", res)
	}
}

func TestResolvePairFullTieNeedsReview(t *testing.T) {
	// Same length, same punctuation count, same stripped form.
	res := ResolvePair("sonic-team", "sonic.team")
	if res.Outcome != OutcomeReview {
		t.Fatalf("expected tie to fall to review, got %+v", res)
	}
	if res.Source != "sonic-team" || res.Match != "sonic.team" {
		t.Fatalf("expected pair preserved on tie, got %+v", res)
	}
}

func TestResolvePairDigitDifferenceIsMismatch(t *testing.T) {
	res := ResolvePair("Mega Man 2", "Mega Man 3")
	if res.Outcome != OutcomeMismatch {
		t.Fatalf("expected digit-only difference to be a mismatch, got %+v", res)
	}
	if res.Match != "" {
		t.Fatalf("mismatch must retain no match, got %+v", res)
	}
}

func TestResolvePairSerialMarkerMismatch(t *testing.T) {
	res := ResolvePair("phantasy star volume 2", "phantasy star episode 2")
	if res.Outcome != OutcomeMismatch {
		t.Fatalf("expected differing serial markers to be a mismatch, got %+v", res)
	}

	// A marker on one side only is not enough evidence.
	res = ResolvePair("phantasy star volume 2", "phantasy star online")
	if res.Outcome != OutcomeReview {
		t.Fatalf("expected single-sided marker to fall to review, got %+v", res)
	}
}

func TestResolvePairIdenticalSerialMarkersNeedReview(t *testing.T) {
	// Same indicator on both sides: the marker carries no mismatch
	// evidence, and the differing body may be a spelling variant.
	res := ResolvePair("sonic adventure volume 2", "sonic adventura volume 2")
	if res.Outcome != OutcomeReview {
		t.Fatalf("expected identical markers to fall to review, got %+v", res)
	}
	if res.Source != "sonic adventure volume 2" || res.Match != "sonic adventura volume 2" {
		t.Fatalf("expected pair preserved for review, got %+v", res)
	}
}

func TestResolveClusterKeepsIdenticalMarkerVariantForReview(t *testing.T) {
	set := CandidateSet{
		Source:  "sonic adventure volume 2",
		Matches: []string{"sonic adventura volume 2"},
	}

	verdict := ResolveCluster(set)
	if verdict.AutoAccept {
		t.Fatalf("ambiguous same-marker variant must not auto-accept: %+v", verdict)
	}
	if !reflect.DeepEqual(verdict.Matches, set.Matches) {
		t.Fatalf("expected candidate preserved for review, got %v", verdict.Matches)
	}
}

func TestResolvePairAmbiguousFallsToReview(t *testing.T) {
	res := ResolvePair("chrono trigger", "chrono tricger")
	if res.Outcome != OutcomeReview {
		t.Fatalf("expected ambiguous spelling to need review, got %+v", res)
	}
	if res.Source != "chrono trigger" || res.Match != "chrono tricger" {
		t.Fatalf("expected pair preserved for review, got %+v", res)
	}
}

func TestResolveClusterSonicExample(t *testing.T) {
	set := CandidateSet{
		Source:  "Sonic the Hedgehog",
		Matches: []string{"Sonic The Hedgehog", "Sonic 2 the Hedgehog"},
	}

	verdict := ResolveCluster(set)
	if !verdict.AutoAccept {
		t.Fatalf("expected cluster to auto-accept, got %+v", verdict)
	}
	// The first candidate is accepted through a reverse-match (it
	// carries more capitalization); the second is a digit mismatch.
	if verdict.Source != "Sonic The Hedgehog" {
		t.Fatalf("expected reverse-matched canonical source, got %q", verdict.Source)
	}
	if !reflect.DeepEqual(verdict.Matches, []string{"Sonic the Hedgehog"}) {
		t.Fatalf("expected one retained match, got %v", verdict.Matches)
	}
}

func TestResolveClusterRunningSourceReplacedMidFold(t *testing.T) {
	// The richer second candidate takes over as canonical source, and
	// the third comparison runs against it.
	set := CandidateSet{
		Source:  "007 Nightfire",
		Matches: []string{"007. Nightfire.", "007 nightfire"},
	}

	verdict := ResolveCluster(set)
	if !verdict.AutoAccept {
		t.Fatalf("expected auto-accept, got %+v", verdict)
	}
	if verdict.Source != "007. Nightfire." {
		t.Fatalf("expected richest form as final source, got %q", verdict.Source)
	}
	want := []string{"007 Nightfire", "007 nightfire"}
	if !reflect.DeepEqual(verdict.Matches, want) {
		t.Fatalf("expected matches %v, got %v", want, verdict.Matches)
	}
}

func TestResolveClusterRevertsAsAUnitOnReview(t *testing.T) {
	set := CandidateSet{
		Source:  "chrono trigger",
		Matches: []string{"chrono trigger.", "chrono tricger"},
	}

	verdict := ResolveCluster(set)
	if verdict.AutoAccept {
		t.Fatalf("cluster with an ambiguous member must not auto-accept: %+v", verdict)
	}
	if verdict.Source != "chrono trigger" {
		t.Fatalf("expected original source on reversion, got %q", verdict.Source)
	}
	if !reflect.DeepEqual(verdict.Matches, set.Matches) {
		t.Fatalf("expected original candidate list on reversion, got %v", verdict.Matches)
	}
}

func TestResolveClusterAllMismatchesCloseQuietly(t *testing.T) {
	set := CandidateSet{
		Source:  "mega man 2",
		Matches: []string{"mega man 3", "mega man 4"},
	}

	verdict := ResolveCluster(set)
	if !verdict.AutoAccept || len(verdict.Matches) != 0 {
		t.Fatalf("expected confirmed mismatches to resolve to a lone source, got %+v", verdict)
	}
}

func TestResolveClusterLoneSource(t *testing.T) {
	verdict := ResolveCluster(CandidateSet{Source: "earthbound"})
	if !verdict.AutoAccept || len(verdict.Matches) != 0 {
		t.Fatalf("expected lone source to be trivially canonical, got %+v", verdict)
	}
}

func TestResolveClusterOverflowSurfacesForAudit(t *testing.T) {
	verdict := ResolveCluster(CandidateSet{Source: "game", Overflow: true})
	if verdict.AutoAccept {
		t.Fatalf("overflow cluster must not auto-accept: %+v", verdict)
	}
	if !verdict.Overflow {
		t.Fatalf("overflow flag must survive resolution: %+v", verdict)
	}
}

func TestResolveClustersKeepsOrder(t *testing.T) {
	sets := []CandidateSet{
		{Source: "sonic", Matches: []string{"sonic."}},
		{Source: "mega man 2", Matches: []string{"mega man 3"}},
		{Source: "earthbound"},
	}

	verdicts := ResolveClusters(sets, 2)
	if len(verdicts) != len(sets) {
		t.Fatalf("expected %d verdicts, got %d", len(sets), len(verdicts))
	}
	for i, v := range verdicts {
		want := ResolveCluster(sets[i])
		if !reflect.DeepEqual(v, want) {
			t.Fatalf("verdict %d differs between batch and single resolution: %+v vs %+v", i, v, want)
		}
	}
}
