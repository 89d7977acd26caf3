// Command review-tagger assigns exactly three short UI tags to every review
// in a CSV, batching reviews by token budget and repairing incomplete or
// nonconforming batch outputs before appending them to the tag log.
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
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Output directory for the tag log and CSV projection")
	fs.StringVar(&cfg.OnlyProjectID, "only-project-id", "", "Tag only reviews of this ProjectId")
	fs.IntVar(&cfg.LimitRows, "limit-rows", cfg.LimitRows, "Process at most N CSV rows after filtering (0 disables)")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Max reviews to tag this run after resume filtering (0 disables)")
	fs.Float64Var(&cfg.SleepSeconds, "sleep-seconds", cfg.SleepSeconds, "Pause between batch calls in seconds (0 disables)")
	fs.BoolVar(&cfg.Resume, "resume", cfg.Resume, "Skip reviews already present in the tag log; pass -resume=false for a clean run")
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
	caller := rollup.NewTagCaller(gen, settings.TagTemperature)

	opts := rollup.TagOptions{
		CSVPath:       cfg.CSVPath,
		OutDir:        cfg.OutDir,
		Resume:        cfg.Resume,
		OnlyProjectID: cfg.OnlyProjectID,
		LimitRows:     cfg.LimitRows,
		BatchSize:     cfg.BatchSize,
		SleepBetween:  time.Duration(cfg.SleepSeconds * float64(time.Second)),
	}

	n, err := rollup.GenerateReviewTags(ctx, caller, settings, opts, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Printf("reviews_tagged=%d out=%s\n", n, cfg.OutDir)
}
