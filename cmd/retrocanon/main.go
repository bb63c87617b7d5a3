// Command retrocanon deduplicates noisy, human-cataloged game title and
// platform fields: near-duplicate spellings collapse into one canonical
// entity, ambiguous pairs land in a persisted review queue.
package main

import (
	"fmt"
	"os"

	"github.com/retrobase/retrocanon/internal/store"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "load":
		err = runLoad(os.Args[2:])
	case "dedupe":
		err = runDedupe(os.Args[2:])
	case "apply":
		err = runApply(os.Args[2:])
	case "review":
		err = runReview(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("retrocanon %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`retrocanon %s — canonicalize noisy game catalog fields

Usage:
  retrocanon <command> [arguments]

Commands:
  load <csv>...       Import cleaned catalog CSVs into the database
  dedupe              Cluster near-duplicate terms and resolve verdicts
  apply               Rewrite records from accepted, unapplied verdicts
  review              List verdicts waiting on manual review
  stats               Show record and verdict counts
  version             Print version

Common Flags:
  --db <path>         Database file (default %s)
  --config <path>     Config file (default ~/.retrocanon/config.yaml)
  --attr <name>       Attribute to process: title or platform (default title)

Dedupe Flags:
  --metric <name>     Distance metric: levenshtein or jaro-winkler
  --max-distance <f>  Match threshold in [0,1] (default 0.1)
  --min-length <n>    Skip terms shorter than n characters
  --skip-numeric      Skip purely numeric terms
  --unique            Assume a mostly-unique population (enables the cap)
  --cap <n>           Max matches per source before overflow (default 10)
  --no-shrink         Do not remove matched terms from the population
  --dry-run           Print verdicts without persisting them

Flags:
  -h, --help          Show this help message
  -v, --version       Print version
`, version, store.DefaultDBPath)
}
