package main

import (
	"testing"

	"github.com/retrobase/retrocanon/internal/match"
	"github.com/retrobase/retrocanon/internal/store"
)

// ==================== parseArgs ====================

func TestParseArgs_ValuedFlags(t *testing.T) {
	var db, attr string
	positional, err := parseArgs(
		[]string{"--db", "/tmp/test.db", "--attr", "platform", "games.csv"},
		map[string]*string{"--db": &db, "--attr": &attr},
		nil)
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if db != "/tmp/test.db" {
		t.Errorf("db = %q, want %q", db, "/tmp/test.db")
	}
	if attr != "platform" {
		t.Errorf("attr = %q, want %q", attr, "platform")
	}
	if len(positional) != 1 || positional[0] != "games.csv" {
		t.Errorf("positional = %v, want [games.csv]", positional)
	}
}

func TestParseArgs_BoolFlags(t *testing.T) {
	var dryRun, unique bool
	positional, err := parseArgs(
		[]string{"--dry-run", "--unique"},
		nil,
		map[string]*bool{"--dry-run": &dryRun, "--unique": &unique})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if !dryRun || !unique {
		t.Errorf("expected both flags set, got dryRun=%v unique=%v", dryRun, unique)
	}
	if len(positional) != 0 {
		t.Errorf("positional = %v, want none", positional)
	}
}

func TestParseArgs_MissingValue(t *testing.T) {
	var db string
	if _, err := parseArgs([]string{"--db"}, map[string]*string{"--db": &db}, nil); err == nil {
		t.Fatal("expected error for flag without value")
	}
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	if _, err := parseArgs([]string{"--bogus"}, nil, nil); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

// ==================== attribute defaulting ====================

func TestAttributeDefaultsToTitle(t *testing.T) {
	flags := commonFlags{}
	attr, err := flags.attribute()
	if err != nil {
		t.Fatalf("attribute failed: %v", err)
	}
	if attr != store.AttrTitle {
		t.Errorf("attr = %q, want %q", attr, store.AttrTitle)
	}
}

func TestAttributeRejectsUnknown(t *testing.T) {
	flags := commonFlags{attr: "publisher"}
	if _, err := flags.attribute(); err == nil {
		t.Fatal("expected error for unknown attribute")
	}
}

// ==================== overlayDedupeOptions ====================

func TestOverlayDedupeOptions_Defaults(t *testing.T) {
	base := match.DefaultDedupeOptions()
	got := overlayDedupeOptions(base, dedupeFlags{maxDistance: -1, minLength: -1, matchCap: -1})

	if got.MaxDistance != base.MaxDistance {
		t.Errorf("MaxDistance = %f, want untouched %f", got.MaxDistance, base.MaxDistance)
	}
	if got.MatchCap != base.MatchCap {
		t.Errorf("MatchCap = %d, want untouched %d", got.MatchCap, base.MatchCap)
	}
	if !got.ShrinkPopulation {
		t.Error("shrink should stay enabled when --no-shrink is absent")
	}
}

func TestOverlayDedupeOptions_Overrides(t *testing.T) {
	got := overlayDedupeOptions(match.DefaultDedupeOptions(), dedupeFlags{
		maxDistance: 0.25,
		minLength:   3,
		matchCap:    50,
		skipNumeric: true,
		unique:      true,
		noShrink:    true,
	})

	if got.MaxDistance != 0.25 || got.MinLength != 3 || got.MatchCap != 50 {
		t.Errorf("thresholds not overridden: %+v", got)
	}
	if !got.SkipNumeric || !got.AssumeUnique {
		t.Errorf("flags not overridden: %+v", got)
	}
	if got.ShrinkPopulation {
		t.Error("--no-shrink should disable shrink")
	}
}

func TestOverlayDedupeOptions_ZeroMinLengthIsExplicit(t *testing.T) {
	base := match.DefaultDedupeOptions()
	base.MinLength = 4
	got := overlayDedupeOptions(base, dedupeFlags{maxDistance: -1, minLength: 0, matchCap: -1})

	if got.MinLength != 0 {
		t.Errorf("MinLength = %d, want explicit 0 to clear the config value", got.MinLength)
	}
}
