package main

import (
	"flag"
	"testing"
)

func TestParseFlagsDefaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.SummariesLogPath != "data/out/project_summaries.jsonl" {
		t.Fatalf("summaries=%q", cfg.SummariesLogPath)
	}
	if cfg.TagsLogPath != "data/out/review_tags.jsonl" {
		t.Fatalf("tags=%q", cfg.TagsLogPath)
	}
	if cfg.OutDBPath != "data/out/review_rollup.db" {
		t.Fatalf("db=%q", cfg.OutDBPath)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	cfg.OutDBPath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("missing -out-db accepted")
	}
}
