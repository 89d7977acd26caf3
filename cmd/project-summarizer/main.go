// Command project-summarizer reads a reviews CSV, groups rows by project and
// generates one structured summary per project via map/reduce calls, writing
// append-only JSONL logs plus a flat CSV projection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brickfolio/review-rollup/rollup"
)

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)
	fs.StringVar(&cfg.CSVPath, "csv", cfg.CSVPath, "Path to the reviews CSV (ProjectId, ProjectName, Description columns required)")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Output directory for JSONL logs and CSV projections")
	fs.StringVar(&cfg.OnlyProjectID, "only-project-id", "", "Process only this ProjectId")
	fs.IntVar(&cfg.LimitProjects, "limit-projects", cfg.LimitProjects, "Process at most N projects after filtering (0 disables)")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Max projects to summarize this run after resume filtering (0 disables)")
	fs.Float64Var(&cfg.SleepSeconds, "sleep-seconds", cfg.SleepSeconds, "Pause between generation calls in seconds (0 disables)")
	fs.BoolVar(&cfg.Resume, "resume", cfg.Resume, "Skip projects already present in the summary log; pass -resume=false for a clean run")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")

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

	settings, err := rollup.LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if cfg.APIKey != "" {
		settings.APIKey = cfg.APIKey
	}
	if err := settings.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := rollup.NewGenerator(settings.APIKey, settings.Model)
	caller := rollup.NewSummaryCaller(gen, settings.Temperature)

	opts := rollup.SummarizeOptions{
		CSVPath:       cfg.CSVPath,
		OutDir:        cfg.OutDir,
		Resume:        cfg.Resume,
		OnlyProjectID: cfg.OnlyProjectID,
		LimitProjects: cfg.LimitProjects,
		BatchSize:     cfg.BatchSize,
		SleepBetween:  time.Duration(cfg.SleepSeconds * float64(time.Second)),
	}

	n, err := rollup.GenerateProjectSummaries(ctx, caller, settings, opts, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Printf("projects_summarized=%d out=%s\n", n, cfg.OutDir)
}
