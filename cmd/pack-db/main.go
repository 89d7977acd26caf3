// Command pack-db loads the summary and tag JSONL logs into a SQLite
// database for ad-hoc querying. The database is rebuilt from scratch on
// every run.
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
	fs.StringVar(&cfg.SummariesLogPath, "summaries-jsonl", cfg.SummariesLogPath, "Path to project_summaries.jsonl")
	fs.StringVar(&cfg.TagsLogPath, "tags-jsonl", cfg.TagsLogPath, "Path to review_tags.jsonl")
	fs.StringVar(&cfg.OutDBPath, "out-db", cfg.OutDBPath, "Path for the SQLite database (recreated each run)")

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

	counts, err := rollup.MigrateLogsToSQLite(cfg.SummariesLogPath, cfg.TagsLogPath, cfg.OutDBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Printf("summary_rows=%d tag_rows=%d db=%s\n", counts.ProjectSummaries, counts.ReviewTags, cfg.OutDBPath)
}
