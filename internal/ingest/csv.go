// Package ingest loads the upstream cleaning scripts' CSV output into
// the record store. Composite fields are canonicalized on the way in so
// the matching pipeline always sees sorted, deduplicated token pairs.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/retrobase/retrocanon/internal/field"
	"github.com/retrobase/retrocanon/internal/store"
)

// ImportResult summarizes one CSV import.
type ImportResult struct {
	SourceFile string
	Records    int
	Skipped    int // rows without a usable title
}

// ImportCSV parses a CSV file and bulk-inserts its rows as records.
//
// The first row is the header. Recognized columns: title_clean,
// platform_clean, year, and optionally title_flat and platform_flat.
// When a flat column is missing, the flat form is derived from the clean
// tokens by lowercasing and whitespace collapsing; full punctuation
// reduction is the upstream scripts' job.
func ImportCSV(ctx context.Context, s *store.Store, path string) (*ImportResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV %s: %w", path, err)
	}
	if len(rows) < 2 {
		// Need at least headers plus one row.
		return &ImportResult{SourceFile: absPath}, nil
	}

	col := headerIndex(rows[0])
	if _, ok := col["title_clean"]; !ok {
		return nil, fmt.Errorf("%s: missing required column title_clean", path)
	}

	result := &ImportResult{SourceFile: absPath}
	records := make([]store.GameRecord, 0, len(rows)-1)

	for _, row := range rows[1:] {
		titleClean, titleFlat := alignedPair(cell(row, col, "title_clean"), cell(row, col, "title_flat"))
		if titleClean == "" {
			result.Skipped++
			continue
		}
		platformClean, platformFlat := alignedPair(cell(row, col, "platform_clean"), cell(row, col, "platform_flat"))

		year := 0
		if y := cell(row, col, "year"); y != "" {
			year, _ = strconv.Atoi(y)
		}

		records = append(records, store.GameRecord{
			TitleClean:    titleClean,
			TitleFlat:     titleFlat,
			PlatformClean: platformClean,
			PlatformFlat:  platformFlat,
			Year:          year,
			SourceFile:    absPath,
		})
	}

	if err := s.InsertRecords(ctx, records); err != nil {
		return nil, fmt.Errorf("inserting records from %s: %w", path, err)
	}
	result.Records = len(records)
	return result, nil
}

// FormatImportResult renders an import summary for the CLI.
func FormatImportResult(r *ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Imported %d records from %s\n", r.Records, r.SourceFile)
	if r.Skipped > 0 {
		fmt.Fprintf(&sb, "Skipped %d rows without a title\n", r.Skipped)
	}
	return sb.String()
}

func headerIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return col
}

func cell(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// alignedPair canonicalizes a clean/flat composite pair while keeping
// the two positionally aligned: pairs are deduplicated and sorted by
// their flat token, never independently. A missing flat side is derived
// from the clean tokens.
func alignedPair(cleanRaw, flatRaw string) (string, string) {
	clean := field.Split(cleanRaw)
	flat := field.Split(flatRaw)

	if len(flat) == 0 {
		flat = make(field.Values, len(clean))
		for i, tok := range clean {
			flat[i] = deriveFlat(tok)
		}
	}

	// Pad the shorter side so no token loses its counterpart.
	for len(flat) < len(clean) {
		flat = append(flat, field.Absent)
	}
	for len(clean) < len(flat) {
		clean = append(clean, field.Absent)
	}

	type pair struct{ clean, flat string }
	pairs := make([]pair, 0, len(clean))
	seen := make(map[string]struct{}, len(clean))
	for i := range clean {
		c := strings.TrimSpace(clean[i])
		fl := strings.TrimSpace(flat[i])
		if c == "" {
			c = field.Absent
		}
		if fl == "" {
			fl = deriveFlat(c)
		}
		if _, ok := seen[fl]; ok {
			continue
		}
		seen[fl] = struct{}{}
		pairs = append(pairs, pair{clean: c, flat: fl})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].flat != pairs[j].flat {
			return pairs[i].flat < pairs[j].flat
		}
		return pairs[i].clean < pairs[j].clean
	})

	cleanOut := make(field.Values, len(pairs))
	flatOut := make(field.Values, len(pairs))
	for i, p := range pairs {
		cleanOut[i] = p.clean
		flatOut[i] = p.flat
	}
	return cleanOut.Join(), flatOut.Join()
}

func deriveFlat(clean string) string {
	return strings.Join(strings.Fields(strings.ToLower(clean)), " ")
}
