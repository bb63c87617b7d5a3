package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/retrobase/retrocanon/internal/store"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestImportCSV(t *testing.T) {
	path := writeCSV(t, `title_clean,title_flat,platform_clean,year
Sonic The Hedgehog,sonic the hedgehog,Genesis,1991
Mega Man 2,mega man 2,NES,1988
,,Amiga,1990
`)

	s := openStore(t)
	result, err := ImportCSV(context.Background(), s, path)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Records != 2 {
		t.Fatalf("expected 2 records, got %d", result.Records)
	}
	if result.Skipped != 1 {
		t.Fatalf("expected 1 skipped row, got %d", result.Skipped)
	}

	n, err := s.CountRecords(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("expected 2 stored records, got %d (%v)", n, err)
	}

	// The platform flat form is derived from the clean column.
	recs, err := s.LoadAttribute(context.Background(), store.AttrPlatform)
	if err != nil {
		t.Fatalf("loading platforms: %v", err)
	}
	if got := recs[0].Flat.Join(); got != "genesis" {
		t.Fatalf("expected derived flat platform, got %q", got)
	}
}

func TestImportCSVMissingTitleColumn(t *testing.T) {
	path := writeCSV(t, "name,year\nSonic,1991\n")
	s := openStore(t)
	if _, err := ImportCSV(context.Background(), s, path); err == nil {
		t.Fatal("expected error for missing title_clean column")
	}
}

func TestImportCSVHeaderOnly(t *testing.T) {
	path := writeCSV(t, "title_clean,year\n")
	s := openStore(t)
	result, err := ImportCSV(context.Background(), s, path)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Records != 0 {
		t.Fatalf("expected no records, got %d", result.Records)
	}
}

func TestAlignedPairSortsByFlatToken(t *testing.T) {
	clean, flat := alignedPair("Zelda II----Sonic", "zelda ii----sonic")
	if flat != "sonic----zelda ii" {
		t.Fatalf("expected flat tokens sorted, got %q", flat)
	}
	if clean != "Sonic----Zelda II" {
		t.Fatalf("expected clean tokens to follow their flat partners, got %q", clean)
	}
}

func TestAlignedPairDedupesByFlatToken(t *testing.T) {
	clean, flat := alignedPair("Sonic----SONIC", "sonic----sonic")
	if flat != "sonic" {
		t.Fatalf("expected duplicate flat tokens collapsed, got %q", flat)
	}
	if clean != "Sonic" {
		t.Fatalf("expected first clean partner kept, got %q", clean)
	}
}

func TestAlignedPairDerivesMissingFlat(t *testing.T) {
	clean, flat := alignedPair("Mega  Man 2----Sonic", "")
	if flat != "mega man 2----sonic" {
		t.Fatalf("expected derived flat tokens, got %q", flat)
	}
	if clean != "Mega  Man 2----Sonic" {
		t.Fatalf("expected clean tokens preserved, got %q", clean)
	}
}
