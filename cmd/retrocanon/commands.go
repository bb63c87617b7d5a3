package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v2"

	"github.com/retrobase/retrocanon/internal/config"
	"github.com/retrobase/retrocanon/internal/ingest"
	"github.com/retrobase/retrocanon/internal/match"
	"github.com/retrobase/retrocanon/internal/rewrite"
	"github.com/retrobase/retrocanon/internal/store"
)

// commonFlags are shared by every command.
type commonFlags struct {
	dbPath     string
	configPath string
	attr       string
	metric     string
}

// dedupeFlags configure one dedupe run on top of the config defaults.
type dedupeFlags struct {
	common      commonFlags
	maxDistance float64
	minLength   int
	skipNumeric bool
	unique      bool
	matchCap    int
	noShrink    bool
	dryRun      bool
}

// parseArgs splits args into flag values and positionals. Flags in
// valued take the next argument as their value; flags in bools stand
// alone. Unknown flags are an error.
func parseArgs(args []string, valued map[string]*string, bools map[string]*bool) ([]string, error) {
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
			continue
		}
		if dst, ok := bools[arg]; ok {
			*dst = true
			continue
		}
		if dst, ok := valued[arg]; ok {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("flag %s needs a value", arg)
			}
			i++
			*dst = args[i]
			continue
		}
		return nil, fmt.Errorf("unknown flag: %s", arg)
	}
	return positional, nil
}

func (c *commonFlags) resolve() (config.ResolvedConfig, error) {
	return config.Resolve(config.ResolveOptions{
		ConfigPath: c.configPath,
		CLIDBPath:  c.dbPath,
		CLIMetric:  c.metric,
	})
}

func (c *commonFlags) attribute() (store.Attribute, error) {
	if c.attr == "" {
		return store.AttrTitle, nil
	}
	return store.ParseAttribute(c.attr)
}

func runLoad(args []string) error {
	var flags commonFlags
	paths, err := parseArgs(args,
		map[string]*string{"--db": &flags.dbPath, "--config": &flags.configPath},
		nil)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("usage: retrocanon load <csv>... [--db <path>]")
	}

	cfg, err := flags.resolve()
	if err != nil {
		return err
	}
	s, err := store.Open(cfg.DBPath.Value)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	for _, path := range paths {
		result, err := ingest.ImportCSV(ctx, s, path)
		if err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
		fmt.Print(ingest.FormatImportResult(result))
	}
	return nil
}

func runDedupe(args []string) error {
	flags := dedupeFlags{maxDistance: -1, minLength: -1, matchCap: -1}
	var maxDistance, minLength, matchCap string
	_, err := parseArgs(args,
		map[string]*string{
			"--db":           &flags.common.dbPath,
			"--config":       &flags.common.configPath,
			"--attr":         &flags.common.attr,
			"--metric":       &flags.common.metric,
			"--max-distance": &maxDistance,
			"--min-length":   &minLength,
			"--cap":          &matchCap,
		},
		map[string]*bool{
			"--skip-numeric": &flags.skipNumeric,
			"--unique":       &flags.unique,
			"--no-shrink":    &flags.noShrink,
			"--dry-run":      &flags.dryRun,
		})
	if err != nil {
		return err
	}
	if maxDistance != "" {
		if flags.maxDistance, err = strconv.ParseFloat(maxDistance, 64); err != nil {
			return fmt.Errorf("invalid --max-distance %q: %w", maxDistance, err)
		}
	}
	if minLength != "" {
		if flags.minLength, err = strconv.Atoi(minLength); err != nil {
			return fmt.Errorf("invalid --min-length %q: %w", minLength, err)
		}
	}
	if matchCap != "" {
		if flags.matchCap, err = strconv.Atoi(matchCap); err != nil {
			return fmt.Errorf("invalid --cap %q: %w", matchCap, err)
		}
	}

	cfg, err := flags.common.resolve()
	if err != nil {
		return err
	}
	attr, err := flags.common.attribute()
	if err != nil {
		return err
	}
	opts := overlayDedupeOptions(cfg.Match, flags)

	s, err := store.Open(cfg.DBPath.Value)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	population, err := s.DistinctFlatTokens(ctx, attr)
	if err != nil {
		return err
	}
	if len(population) == 0 {
		fmt.Printf("No %s terms to deduplicate — run `retrocanon load` first\n", attr)
		return nil
	}

	fmt.Printf("Deduplicating %d unique %s terms (metric %s, threshold %.3f)\n",
		len(population), attr, opts.Metric, opts.MaxDistance)

	bar := progressbar.New(len(population))
	done := 0
	opts.ProgressFn = func(current, total int) {
		if current > done {
			_ = bar.Add(current - done)
			done = current
		}
	}

	sets := match.Dedupe(population, opts)
	fmt.Println()

	verdicts := match.ResolveClusters(sets, match.DefaultResolveConcurrency)

	var accepted, review, overflow int
	persistable := make([]match.ClusterVerdict, 0, len(verdicts))
	for _, v := range verdicts {
		switch {
		case v.Overflow:
			overflow++
		case v.AutoAccept && len(v.Matches) > 0:
			accepted++
		case !v.AutoAccept:
			review++
		default:
			// Lone or all-mismatch sources are no-ops; keep them out
			// of the audit table.
			continue
		}
		persistable = append(persistable, v)
	}

	fmt.Printf("Clusters: %d accepted, %d need review, %d overflowed the match cap\n",
		accepted, review, overflow)

	if flags.dryRun {
		for _, v := range persistable {
			fmt.Print(formatVerdict(v))
		}
		fmt.Println("Dry run — nothing persisted")
		return nil
	}

	if err := s.SaveVerdicts(ctx, attr, persistable); err != nil {
		return err
	}
	fmt.Printf("Persisted %d verdicts — run `retrocanon apply --attr %s` to rewrite records\n",
		len(persistable), attr)
	return nil
}

// overlayDedupeOptions applies per-run CLI flags on top of the resolved
// config defaults.
func overlayDedupeOptions(base match.DedupeOptions, flags dedupeFlags) match.DedupeOptions {
	if flags.maxDistance >= 0 {
		base.MaxDistance = flags.maxDistance
	}
	if flags.minLength >= 0 {
		base.MinLength = flags.minLength
	}
	if flags.skipNumeric {
		base.SkipNumeric = true
	}
	if flags.unique {
		base.AssumeUnique = true
	}
	if flags.matchCap >= 0 {
		base.MatchCap = flags.matchCap
	}
	if flags.noShrink {
		base.ShrinkPopulation = false
	}
	return base
}

func runApply(args []string) error {
	var flags commonFlags
	if _, err := parseArgs(args,
		map[string]*string{"--db": &flags.dbPath, "--config": &flags.configPath, "--attr": &flags.attr},
		nil); err != nil {
		return err
	}

	cfg, err := flags.resolve()
	if err != nil {
		return err
	}
	attr, err := flags.attribute()
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.DBPath.Value)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	stored, err := s.ListVerdicts(ctx, attr, store.VerdictFilter{AcceptedOnly: true, UnappliedOnly: true})
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		fmt.Printf("No accepted %s verdicts waiting — run `retrocanon dedupe` first\n", attr)
		return nil
	}

	records, err := s.LoadAttribute(ctx, attr)
	if err != nil {
		return err
	}

	verdicts := make([]match.ClusterVerdict, len(stored))
	for i, v := range stored {
		verdicts[i] = match.ClusterVerdict{Source: v.Source, Matches: v.Matches, AutoAccept: true}
	}

	report := rewrite.ApplyAll(verdicts, records)

	if err := s.SaveAttribute(ctx, attr, records); err != nil {
		return err
	}

	skipped := make(map[string]struct{}, len(report.Skipped))
	for _, src := range report.Skipped {
		skipped[src] = struct{}{}
	}
	var appliedIDs []int64
	for _, v := range stored {
		if _, ok := skipped[v.Source]; ok {
			continue
		}
		appliedIDs = append(appliedIDs, v.ID)
	}
	if err := s.MarkApplied(ctx, appliedIDs); err != nil {
		return err
	}

	fmt.Printf("Applied %d verdicts, rewrote %d tokens across %d records\n",
		report.Applied, report.Rewrites, len(records))
	for _, src := range report.Skipped {
		fmt.Printf("Skipped %q: source token not found in any record\n", src)
	}
	return nil
}

func runReview(args []string) error {
	var flags commonFlags
	if _, err := parseArgs(args,
		map[string]*string{"--db": &flags.dbPath, "--config": &flags.configPath, "--attr": &flags.attr},
		nil); err != nil {
		return err
	}

	cfg, err := flags.resolve()
	if err != nil {
		return err
	}
	attr, err := flags.attribute()
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.DBPath.Value)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	queue, err := s.ListVerdicts(context.Background(), attr, store.VerdictFilter{ReviewOnly: true, UnappliedOnly: true})
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		fmt.Printf("Nothing waiting on review for %s\n", attr)
		return nil
	}

	fmt.Printf("%d %s clusters need manual review:\n\n", len(queue), attr)
	for _, v := range queue {
		fmt.Print(formatVerdict(match.ClusterVerdict{
			Source:     v.Source,
			Matches:    v.Matches,
			AutoAccept: v.AutoAccept,
			Overflow:   v.Overflow,
		}))
	}
	return nil
}

func runStats(args []string) error {
	var flags commonFlags
	if _, err := parseArgs(args,
		map[string]*string{"--db": &flags.dbPath, "--config": &flags.configPath},
		nil); err != nil {
		return err
	}

	cfg, err := flags.resolve()
	if err != nil {
		return err
	}
	s, err := store.Open(cfg.DBPath.Value)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	stats, err := s.GetStats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Records:            %d\n", stats.Records)
	fmt.Printf("Verdicts:           %d\n", stats.Verdicts)
	fmt.Printf("  accepted:         %d\n", stats.AcceptedVerdicts)
	fmt.Printf("  applied:          %d\n", stats.AppliedVerdicts)
	fmt.Printf("  awaiting review:  %d\n", stats.ReviewVerdicts)
	if stats.DBSizeBytes > 0 {
		fmt.Printf("Database size:      %.1f KiB\n", float64(stats.DBSizeBytes)/1024)
	}
	return nil
}

func formatVerdict(v match.ClusterVerdict) string {
	var sb strings.Builder
	switch {
	case v.Overflow:
		fmt.Fprintf(&sb, "  %s  (too many matches — cluster capped)\n", v.Source)
	case v.AutoAccept:
		fmt.Fprintf(&sb, "  %s  <= %s\n", v.Source, strings.Join(v.Matches, ", "))
	default:
		fmt.Fprintf(&sb, "  %s  ?? %s\n", v.Source, strings.Join(v.Matches, ", "))
	}
	return sb.String()
}
