package main

import "errors"

type Config struct {
	CSVPath string
	Top     int
}

func (c Config) Validate() error {
	if c.CSVPath == "" {
		return errors.New("missing -csv")
	}
	if c.Top < 0 {
		return errors.New("top must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Top: 10,
	}
}
