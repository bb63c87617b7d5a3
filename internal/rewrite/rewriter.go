// Package rewrite propagates accepted canonicalization verdicts back
// into the record table, substituting canonical tokens into composite
// clean/flat field pairs.
package rewrite

import (
	"errors"
	"fmt"

	"github.com/retrobase/retrocanon/internal/field"
	"github.com/retrobase/retrocanon/internal/match"
)

// ErrSourceNotFound reports a verdict whose source token appears in no
// record, so no canonical display form can be read off. The cluster is
// skipped and reported; an empty rewrite is never applied.
var ErrSourceNotFound = errors.New("source token not found in any record")

// Record is one attribute projection of a row: the display-quality
// composite field and its normalized counterpart. The Nth clean token
// corresponds to the Nth flat token.
type Record struct {
	ID    int64
	Clean field.Values
	Flat  field.Values
}

// Report summarizes applying a batch of verdicts.
type Report struct {
	Applied  int      // verdicts fully applied
	Rewrites int      // individual tokens rewritten
	Skipped  []string // sources of verdicts skipped because no record carries them
}

// Apply rewrites every record whose flat field contains one of the
// verdict's match tokens, replacing that token (and only that token)
// with the source's flat token and its canonical clean counterpart.
// Tokens are matched by whole-value equality on the typed sequence, so
// a match token that is a substring of a sibling token is never touched.
//
// Verdicts that are not auto-accepted, or that retain no matches, are
// no-ops. Returns the number of tokens rewritten.
func Apply(verdict match.ClusterVerdict, records []Record) (int, error) {
	if !verdict.AutoAccept || len(verdict.Matches) == 0 {
		return 0, nil
	}

	cleanToken, err := canonicalCleanForm(verdict.Source, records)
	if err != nil {
		return 0, fmt.Errorf("verdict for %q: %w", verdict.Source, err)
	}

	rewrites := 0
	for _, matchToken := range verdict.Matches {
		if matchToken == verdict.Source {
			continue
		}
		for i := range records {
			rec := &records[i]
			for j, tok := range rec.Flat {
				if tok != matchToken {
					continue
				}
				if j >= len(rec.Clean) {
					return rewrites, fmt.Errorf("verdict for %q: record %d: flat token %d has no aligned clean token",
						verdict.Source, rec.ID, j)
				}
				rec.Flat[j] = verdict.Source
				rec.Clean[j] = cleanToken
				rewrites++
			}
		}
	}
	return rewrites, nil
}

// ApplyAll applies every accepted verdict in order. Accepted clusters
// never target overlapping tokens (deduplication consumed each term at
// most once), so application order across clusters does not matter;
// each physical token is rewritten at most once per run. Verdicts whose
// source appears in no record are collected in Report.Skipped instead
// of failing the batch.
func ApplyAll(verdicts []match.ClusterVerdict, records []Record) Report {
	var report Report
	for _, v := range verdicts {
		if !v.AutoAccept || len(v.Matches) == 0 {
			continue
		}
		n, err := Apply(v, records)
		if err != nil {
			report.Skipped = append(report.Skipped, v.Source)
			continue
		}
		report.Applied++
		report.Rewrites += n
	}
	return report
}

// canonicalCleanForm locates the first record whose flat field carries
// the source token and reads off the positionally aligned clean token.
func canonicalCleanForm(source string, records []Record) (string, error) {
	for i := range records {
		j := records[i].Flat.Index(source)
		if j < 0 {
			continue
		}
		if j >= len(records[i].Clean) {
			return "", fmt.Errorf("record %d: flat token %d has no aligned clean token", records[i].ID, j)
		}
		return records[i].Clean[j], nil
	}
	return "", ErrSourceNotFound
}
