package main

import (
	"errors"
	"path/filepath"
)

type Config struct {
	CSVPath string
	OutDir  string

	SummariesLogPath string
	TagsLogPath      string

	OnlyProjectID string
	LimitProjects int
}

func (c Config) Validate() error {
	if c.CSVPath == "" {
		return errors.New("missing -csv")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	if c.LimitProjects < 0 {
		return errors.New("limit-projects must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutDir: filepath.FromSlash("data/out"),
	}
}
