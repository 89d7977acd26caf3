package main

import (
	"flag"
	"testing"
)

func TestParseFlagsDefaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{"-csv", "data/reviews.csv"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.CSVPath != "data/reviews.csv" {
		t.Fatalf("csv=%q", cfg.CSVPath)
	}
	if cfg.OutDir != "data/out" {
		t.Fatalf("out=%q, want default", cfg.OutDir)
	}
	if !cfg.Resume {
		t.Fatalf("resume should default to true")
	}
	if cfg.LimitProjects != 0 || cfg.BatchSize != 0 || cfg.SleepSeconds != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestParseFlagsOverrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-csv", "in.csv",
		"-out", "elsewhere",
		"-only-project-id", "p9",
		"-limit-projects", "5",
		"-batch-size", "2",
		"-sleep-seconds", "0.5",
		"-resume=false",
		"-api-key", "k",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.OutDir != "elsewhere" || cfg.OnlyProjectID != "p9" || cfg.LimitProjects != 5 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.BatchSize != 2 || cfg.SleepSeconds != 0.5 || cfg.Resume || cfg.APIKey != "k" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("missing -csv accepted")
	}

	cfg.CSVPath = "in.csv"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.LimitProjects = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("negative limit accepted")
	}
}
