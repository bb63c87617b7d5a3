// Package field handles composite, delimiter-encoded multi-valued fields.
//
// A composite field stores an ordered list of sub-values in one string
// column, joined by a reserved multi-character delimiter guaranteed absent
// from legitimate values. All matching and rewriting logic works on the
// typed Values sequence; the joined string form exists only at the
// storage boundary (Split on load, Join on save).
package field

import (
	"sort"
	"strconv"
	"strings"
)

// Delimiter is the reserved token separating sub-values in a composite
// field. Multi-character so single dashes inside titles survive.
const Delimiter = "----"

// Absent marks a missing or blank sub-value explicitly, so positional
// alignment between paired fields is never thrown off by empty segments.
const Absent = "unknown"

// Values is an ordered sequence of sub-values of one composite field.
type Values []string

// Split deserializes a composite field into its sub-values.
// An empty field yields an empty sequence, not a single empty value.
func Split(raw string) Values {
	if raw == "" {
		return Values{}
	}
	return Values(strings.Split(raw, Delimiter))
}

// Join serializes the sequence back to its composite string form.
// Join(Split(x)) == x for any x free of canonicalization transforms.
func (v Values) Join() string {
	return strings.Join(v, Delimiter)
}

// Index returns the position of the first sub-value equal to token,
// or -1. Equality is whole-token, so a token that is a substring of a
// sibling value can never be found here.
func (v Values) Index(token string) int {
	for i, val := range v {
		if val == token {
			return i
		}
	}
	return -1
}

// Contains reports whether token occurs as a whole sub-value.
func (v Values) Contains(token string) bool {
	return v.Index(token) >= 0
}

// Clone returns an independent copy of the sequence.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	copy(out, v)
	return out
}

// Canonicalize normalizes a value sequence into its canonical form:
// blank values become the explicit Absent marker, duplicates are
// optionally removed, the sequence is sorted into a deterministic total
// order (numeric when every value parses as a number, lexicographic
// otherwise), and residual empty segments are dropped.
//
// Canonicalize is idempotent: applying it to its own output is a no-op.
func Canonicalize(vals Values, dedupe bool) Values {
	out := make(Values, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			v = Absent
		}
		out = append(out, v)
	}

	if dedupe {
		seen := make(map[string]struct{}, len(out))
		kept := out[:0]
		for _, v := range out {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			kept = append(kept, v)
		}
		out = kept
	}

	sortValues(out)

	kept := out[:0]
	for _, v := range out {
		if v == "" {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

// CanonicalizeField canonicalizes a composite field in its serialized
// form. Idempotent like Canonicalize.
func CanonicalizeField(raw string, dedupe bool) string {
	return Canonicalize(Split(raw), dedupe).Join()
}

// CanonicalizeNested canonicalizes a composite-of-composite field: each
// inner group is canonicalized and serialized first, then the resulting
// list of scalars is canonicalized as a whole.
func CanonicalizeNested(groups []Values, dedupe bool) string {
	outer := make(Values, 0, len(groups))
	for _, g := range groups {
		outer = append(outer, Canonicalize(g, dedupe).Join())
	}
	return Canonicalize(outer, dedupe).Join()
}

func sortValues(vals Values) {
	if allNumeric(vals) {
		sort.SliceStable(vals, func(i, j int) bool {
			a, _ := strconv.ParseFloat(vals[i], 64)
			b, _ := strconv.ParseFloat(vals[j], 64)
			if a != b {
				return a < b
			}
			return vals[i] < vals[j]
		})
		return
	}
	sort.SliceStable(vals, func(i, j int) bool { return vals[i] < vals[j] })
}

func allNumeric(vals Values) bool {
	if len(vals) == 0 {
		return false
	}
	for _, v := range vals {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}
