package rollup

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings holds the knobs shared by the summarization and tagging pipelines.
// Values come from defaults, then an optional YAML file, then environment
// variables, each layer overriding the previous one.
type Settings struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`

	MaxReviewsPerProject int     `yaml:"maxReviewsPerProject"`
	ChunkTokens          int     `yaml:"chunkTokens"`
	MaxReviewChars       int     `yaml:"maxReviewChars"`
	Temperature          float64 `yaml:"temperature"`

	TagBatchTokens     int     `yaml:"tagBatchTokens"`
	TagBatchMaxReviews int     `yaml:"tagBatchMaxReviews"`
	TagTemperature     float64 `yaml:"tagTemperature"`

	CharsPerToken int `yaml:"charsPerToken"`
}

func DefaultSettings() Settings {
	return Settings{
		Model:                "gpt-4.1-mini",
		MaxReviewsPerProject: 400,
		ChunkTokens:          12000,
		MaxReviewChars:       1200,
		Temperature:          0.2,
		TagBatchTokens:       8000,
		TagBatchMaxReviews:   25,
		TagTemperature:       0.1,
		CharsPerToken:        defaultCharsPerToken,
	}
}

// LoadSettings builds Settings from defaults, the YAML file named by
// REVIEW_ROLLUP_CONFIG (if set), and environment variables. It does not
// validate; callers may still override fields (the api key flag) before
// calling Validate.
func LoadSettings() (Settings, error) {
	s := DefaultSettings()

	if path := strings.TrimSpace(os.Getenv("REVIEW_ROLLUP_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		s.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		s.Model = v
	}
	overrideInt(&s.MaxReviewsPerProject, "OPENAI_MAX_REVIEWS_PER_PROJECT")
	overrideInt(&s.ChunkTokens, "OPENAI_CHUNK_TOKENS")
	overrideInt(&s.MaxReviewChars, "OPENAI_MAX_REVIEW_CHARS")
	overrideFloat(&s.Temperature, "OPENAI_TEMPERATURE")
	overrideInt(&s.TagBatchTokens, "OPENAI_TAG_BATCH_TOKENS")
	overrideInt(&s.TagBatchMaxReviews, "OPENAI_TAG_BATCH_MAX_REVIEWS")
	overrideFloat(&s.TagTemperature, "OPENAI_TAG_TEMPERATURE")

	return s, nil
}

func overrideInt(dst *int, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overrideFloat(dst *float64, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.APIKey) == "" {
		return fmt.Errorf("api key is required (set OPENAI_API_KEY or pass -api-key)")
	}
	if strings.TrimSpace(s.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if s.MaxReviewsPerProject <= 0 {
		return fmt.Errorf("maxReviewsPerProject must be positive, got %d", s.MaxReviewsPerProject)
	}
	if s.ChunkTokens <= 0 {
		return fmt.Errorf("chunkTokens must be positive, got %d", s.ChunkTokens)
	}
	if s.MaxReviewChars <= 0 {
		return fmt.Errorf("maxReviewChars must be positive, got %d", s.MaxReviewChars)
	}
	if s.TagBatchTokens <= 0 {
		return fmt.Errorf("tagBatchTokens must be positive, got %d", s.TagBatchTokens)
	}
	if s.TagBatchMaxReviews <= 0 {
		return fmt.Errorf("tagBatchMaxReviews must be positive, got %d", s.TagBatchMaxReviews)
	}
	if s.CharsPerToken <= 0 {
		return fmt.Errorf("charsPerToken must be positive, got %d", s.CharsPerToken)
	}
	return nil
}
