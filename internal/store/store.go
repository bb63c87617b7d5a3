// Package store provides the SQLite storage layer for retrocanon.
//
// All data lives in a single SQLite database file: the imported record
// table (one row per cataloged game, with composite clean/flat field
// pairs per attribute) and the verdict audit table holding every
// canonicalization decision, accepted or flagged for manual review.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/retrobase/retrocanon/internal/field"
	"github.com/retrobase/retrocanon/internal/match"
	"github.com/retrobase/retrocanon/internal/rewrite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.retrocanon/retrocanon.db"

// Attribute names a record attribute that carries a clean/flat composite
// field pair.
type Attribute string

const (
	AttrTitle    Attribute = "title"
	AttrPlatform Attribute = "platform"
)

// columns maps an attribute to its column pair. The whitelist keeps
// attribute names out of SQL identifier position.
func (a Attribute) columns() (clean, flat string, err error) {
	switch a {
	case AttrTitle:
		return "title_clean", "title_flat", nil
	case AttrPlatform:
		return "platform_clean", "platform_flat", nil
	}
	return "", "", fmt.Errorf("unknown attribute %q", a)
}

// ParseAttribute validates an attribute name from CLI input.
func ParseAttribute(name string) (Attribute, error) {
	a := Attribute(name)
	if _, _, err := a.columns(); err != nil {
		return "", err
	}
	return a, nil
}

// GameRecord is one imported catalog row.
type GameRecord struct {
	ID            int64
	TitleClean    string
	TitleFlat     string
	PlatformClean string
	PlatformFlat  string
	Year          int
	SourceFile    string
	ImportedAt    time.Time
}

// Verdict is one persisted canonicalization decision.
type Verdict struct {
	ID         int64
	Attribute  Attribute
	Source     string
	Matches    []string
	AutoAccept bool
	Overflow   bool
	Applied    bool
	CreatedAt  time.Time
}

// VerdictFilter narrows ListVerdicts.
type VerdictFilter struct {
	AcceptedOnly  bool // auto-accepted with at least one match
	UnappliedOnly bool
	ReviewOnly    bool // needs manual review: not accepted, or overflowed
}

// Stats holds counts for the stats command.
type Stats struct {
	Records          int64
	Verdicts         int64
	AcceptedVerdicts int64
	AppliedVerdicts  int64
	ReviewVerdicts   int64
	DBSizeBytes      int64
}

// Store is the SQLite-backed persistence layer.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the database at path.
// Pass ":memory:" for in-memory databases (testing).
func Open(path string) (*Store, error) {
	if path == "" {
		path = ExpandPath(DefaultDBPath)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title_clean TEXT NOT NULL DEFAULT '',
		title_flat TEXT NOT NULL DEFAULT '',
		platform_clean TEXT NOT NULL DEFAULT '',
		platform_flat TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		source_file TEXT NOT NULL DEFAULT '',
		imported_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS verdicts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attribute TEXT NOT NULL,
		source TEXT NOT NULL,
		matches TEXT NOT NULL DEFAULT '[]',
		auto_accept INTEGER NOT NULL DEFAULT 0,
		overflow INTEGER NOT NULL DEFAULT 0,
		applied INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_verdicts_attribute ON verdicts(attribute, applied);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// InsertRecords bulk-inserts imported records in one transaction and
// fills in their assigned IDs.
func (s *Store) InsertRecords(ctx context.Context, records []GameRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (title_clean, title_flat, platform_clean, platform_flat, year, source_file)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		res, err := stmt.ExecContext(ctx,
			r.TitleClean, r.TitleFlat, r.PlatformClean, r.PlatformFlat, r.Year, r.SourceFile)
		if err != nil {
			return fmt.Errorf("inserting record %q: %w", r.TitleClean, err)
		}
		if r.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading record insert id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record insert: %w", err)
	}
	return nil
}

// LoadAttribute reads the clean/flat field pair of one attribute for
// every record, in id order.
func (s *Store) LoadAttribute(ctx context.Context, attr Attribute) ([]rewrite.Record, error) {
	cleanCol, flatCol, err := attr.columns()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, %s, %s FROM records ORDER BY id`, cleanCol, flatCol)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s fields: %w", attr, err)
	}
	defer rows.Close()

	var out []rewrite.Record
	for rows.Next() {
		var id int64
		var clean, flat string
		if err := rows.Scan(&id, &clean, &flat); err != nil {
			return nil, fmt.Errorf("scanning %s fields: %w", attr, err)
		}
		out = append(out, rewrite.Record{
			ID:    id,
			Clean: field.Split(clean),
			Flat:  field.Split(flat),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s fields: %w", attr, err)
	}
	return out, nil
}

// SaveAttribute writes rewritten clean/flat field pairs back, one
// transaction for the whole batch.
func (s *Store) SaveAttribute(ctx context.Context, attr Attribute, records []rewrite.Record) error {
	cleanCol, flatCol, err := attr.columns()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`UPDATE records SET %s = ?, %s = ? WHERE id = ?`, cleanCol, flatCol)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing %s update: %w", attr, err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		if _, err := stmt.ExecContext(ctx, r.Clean.Join(), r.Flat.Join(), r.ID); err != nil {
			return fmt.Errorf("updating record %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s update: %w", attr, err)
	}
	return nil
}

// DistinctFlatTokens extracts the unique flat sub-values of one
// attribute across all records, sorted. This is the term population the
// deduplicator walks.
func (s *Store) DistinctFlatTokens(ctx context.Context, attr Attribute) ([]string, error) {
	_, flatCol, err := attr.columns()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM records`, flatCol))
	if err != nil {
		return nil, fmt.Errorf("querying %s tokens: %w", attr, err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var flat string
		if err := rows.Scan(&flat); err != nil {
			return nil, fmt.Errorf("scanning %s tokens: %w", attr, err)
		}
		for _, tok := range field.Split(flat) {
			if tok == "" {
				continue
			}
			seen[tok] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s tokens: %w", attr, err)
	}

	tokens := make([]string, 0, len(seen))
	for tok := range seen {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens, nil
}

// SaveVerdicts persists a batch of resolution verdicts for audit and
// later application or manual review.
func (s *Store) SaveVerdicts(ctx context.Context, attr Attribute, verdicts []match.ClusterVerdict) error {
	if len(verdicts) == 0 {
		return nil
	}
	if _, _, err := attr.columns(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin verdict transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO verdicts (attribute, source, matches, auto_accept, overflow)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing verdict insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range verdicts {
		matchesJSON, err := json.Marshal(v.Matches)
		if err != nil {
			return fmt.Errorf("encoding matches for %q: %w", v.Source, err)
		}
		if _, err := stmt.ExecContext(ctx,
			string(attr), v.Source, string(matchesJSON), boolInt(v.AutoAccept), boolInt(v.Overflow)); err != nil {
			return fmt.Errorf("inserting verdict for %q: %w", v.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit verdict insert: %w", err)
	}
	return nil
}

// ListVerdicts returns stored verdicts for one attribute, oldest first.
func (s *Store) ListVerdicts(ctx context.Context, attr Attribute, filter VerdictFilter) ([]Verdict, error) {
	if _, _, err := attr.columns(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, attribute, source, matches, auto_accept, overflow, applied, created_at
		FROM verdicts
		WHERE attribute = ?
	`
	if filter.AcceptedOnly {
		query += ` AND auto_accept = 1 AND matches != '[]' AND matches != 'null'`
	}
	if filter.UnappliedOnly {
		query += ` AND applied = 0`
	}
	if filter.ReviewOnly {
		query += ` AND (auto_accept = 0 OR overflow = 1)`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, string(attr))
	if err != nil {
		return nil, fmt.Errorf("querying verdicts: %w", err)
	}
	defer rows.Close()

	var out []Verdict
	for rows.Next() {
		var v Verdict
		var attrName, matchesJSON string
		var accept, overflow, applied int
		if err := rows.Scan(&v.ID, &attrName, &v.Source, &matchesJSON, &accept, &overflow, &applied, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning verdict: %w", err)
		}
		if err := json.Unmarshal([]byte(matchesJSON), &v.Matches); err != nil {
			return nil, fmt.Errorf("decoding matches for verdict %d: %w", v.ID, err)
		}
		v.Attribute = Attribute(attrName)
		v.AutoAccept = accept != 0
		v.Overflow = overflow != 0
		v.Applied = applied != 0
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating verdicts: %w", err)
	}
	return out, nil
}

// MarkApplied flags verdicts as propagated into the record table.
func (s *Store) MarkApplied(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark-applied transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE verdicts SET applied = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("marking verdict %d applied: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark-applied: %w", err)
	}
	return nil
}

// CountRecords returns the number of imported records.
func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// GetStats gathers counts for the stats command.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	var err error

	if st.Records, err = s.CountRecords(ctx); err != nil {
		return nil, err
	}

	counts := []struct {
		dst   *int64
		where string
	}{
		{&st.Verdicts, ""},
		{&st.AcceptedVerdicts, ` WHERE auto_accept = 1 AND matches != '[]' AND matches != 'null'`},
		{&st.AppliedVerdicts, ` WHERE applied = 1`},
		{&st.ReviewVerdicts, ` WHERE auto_accept = 0 OR overflow = 1`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verdicts`+c.where).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("counting verdicts: %w", err)
		}
	}

	if s.dbPath != ":memory:" {
		if info, err := os.Stat(s.dbPath); err == nil {
			st.DBSizeBytes = info.Size()
		}
	}
	return &st, nil
}

// ExpandPath resolves a leading ~/ against the user home directory.
func ExpandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
