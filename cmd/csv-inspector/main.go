// Command csv-inspector prints coverage statistics for a reviews CSV so a
// run can be sized before paying for generation calls.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/brickfolio/review-rollup/rollup"
)

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)
	fs.StringVar(&cfg.CSVPath, "csv", cfg.CSVPath, "Path to the reviews CSV (ProjectId, ProjectName, Description columns required)")
	fs.IntVar(&cfg.Top, "top", cfg.Top, "Number of largest projects to list (0 disables)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	rows, err := rollup.ReadReviewsCSV(cfg.CSVPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	withText := 0
	withRating := 0
	withDate := 0
	uids := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.ReviewText != "" {
			withText++
		}
		if row.Rating != nil {
			withRating++
		}
		if row.CreatedAt != nil {
			withDate++
		}
		uids[row.UID] = struct{}{}
	}

	projects := rollup.GroupByProject(rows)

	fmt.Printf("rows=%d unique_reviews=%d projects=%d\n", len(rows), len(uids), len(projects))
	fmt.Printf("with_text=%d with_rating=%d with_parseable_date=%d\n", withText, withRating, withDate)

	if cfg.Top > 0 {
		top := projects
		if len(top) > cfg.Top {
			top = top[:cfg.Top]
		}
		fmt.Printf("top %d projects by review count:\n", len(top))
		for _, p := range top {
			fmt.Printf("  %s  %q  reviews=%d\n", p.ID, p.Name, len(p.Rows))
		}
	}
}
