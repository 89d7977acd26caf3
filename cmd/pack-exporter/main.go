// Command pack-exporter joins the reviews CSV with the summary and tag logs
// into per-project pack JSON files, per-project tag CSVs and an index CSV.
// No generation calls are made; it only recombines existing outputs.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brickfolio/review-rollup/rollup"
	"github.com/brickfolio/review-rollup/rollup/fileutils"
)

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)
	fs.StringVar(&cfg.CSVPath, "csv", cfg.CSVPath, "Path to the reviews CSV (ProjectId, ProjectName, Description columns required)")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Output directory for packs, per-project tag CSVs and the index")
	fs.StringVar(&cfg.SummariesLogPath, "summaries-jsonl", "", "Path to project_summaries.jsonl (default: <out>/project_summaries.jsonl)")
	fs.StringVar(&cfg.TagsLogPath, "tags-jsonl", "", "Path to review_tags.jsonl (default: <out>/review_tags.jsonl)")
	fs.StringVar(&cfg.OnlyProjectID, "only-project-id", "", "Export only this ProjectId")
	fs.IntVar(&cfg.LimitProjects, "limit-projects", cfg.LimitProjects, "Export at most N projects (0 disables)")

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

	summariesLog := cfg.SummariesLogPath
	if summariesLog == "" {
		summariesLog = filepath.Join(cfg.OutDir, "project_summaries.jsonl")
	}
	tagsLog := cfg.TagsLogPath
	if tagsLog == "" {
		tagsLog = filepath.Join(cfg.OutDir, "review_tags.jsonl")
	}
	if !fileutils.FileExists(tagsLog) {
		fmt.Fprintf(os.Stderr, "tag log %s not found; run review-tagger first\n", tagsLog)
		os.Exit(2)
	}

	opts := rollup.ExportOptions{
		CSVPath:          cfg.CSVPath,
		OutDir:           cfg.OutDir,
		SummariesLogPath: summariesLog,
		TagsLogPath:      tagsLog,
		OnlyProjectID:    cfg.OnlyProjectID,
		LimitProjects:    cfg.LimitProjects,
	}

	n, err := rollup.ExportProjectPacks(opts, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Printf("packs_written=%d out=%s\n", n, cfg.OutDir)
}
