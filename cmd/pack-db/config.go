package main

import (
	"errors"
	"path/filepath"
)

type Config struct {
	SummariesLogPath string
	TagsLogPath      string
	OutDBPath        string
}

func (c Config) Validate() error {
	if c.SummariesLogPath == "" {
		return errors.New("missing -summaries-jsonl")
	}
	if c.TagsLogPath == "" {
		return errors.New("missing -tags-jsonl")
	}
	if c.OutDBPath == "" {
		return errors.New("missing -out-db")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		SummariesLogPath: filepath.FromSlash("data/out/project_summaries.jsonl"),
		TagsLogPath:      filepath.FromSlash("data/out/review_tags.jsonl"),
		OutDBPath:        filepath.FromSlash("data/out/review_rollup.db"),
	}
}
