package main

import (
	"errors"
	"path/filepath"
)

type Config struct {
	CSVPath string
	OutDir  string

	OnlyProjectID string
	LimitRows     int
	BatchSize     int
	SleepSeconds  float64

	Resume bool
	APIKey string
}

func (c Config) Validate() error {
	if c.CSVPath == "" {
		return errors.New("missing -csv")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	if c.LimitRows < 0 {
		return errors.New("limit-rows must be >= 0")
	}
	if c.BatchSize < 0 {
		return errors.New("batch-size must be >= 0")
	}
	if c.SleepSeconds < 0 {
		return errors.New("sleep-seconds must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutDir: filepath.FromSlash("data/out"),
		Resume: true,
	}
}
