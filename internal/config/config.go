// Package config loads scriptorium settings from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// Config is the top-level configuration.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Log           LogConfig           `yaml:"log"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Search        SearchConfig        `yaml:"search"`
}

type DatabaseConfig struct {
	// DSN is ":memory:" or a file path.
	DSN string `yaml:"dsn"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path,omitempty"`
}

type TranscriptionConfig struct {
	Languages       []string `yaml:"languages"`
	DefaultLanguage string   `yaml:"default_language"`
	IllegibleGlyph  string   `yaml:"illegible_glyph"`
	// PageTypes are stored with ids 0..n-1 in the listed order.
	PageTypes []string `yaml:"page_types"`
}

type SearchConfig struct {
	StopwordLanguage string `yaml:"stopword_language"`
	MinTermLength    int    `yaml:"min_term_length"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{DSN: ":memory:"},
		Log:      LogConfig{Level: "info"},
		Transcription: TranscriptionConfig{
			Languages:       append([]string(nil), transcription.DefaultLanguages...),
			DefaultLanguage: "la",
			IllegibleGlyph:  transcription.DefaultIllegibleGlyph,
			PageTypes:       []string{"notSet", "text", "frontMatter", "backMatter"},
		},
		Search: SearchConfig{StopwordLanguage: "en", MinTermLength: 2},
	}
}

// Load reads the config at path, creating it with defaults when missing.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return Config{}, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses YAML over the defaults and validates the result.
func LoadFromBytes(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks internal consistency.
func (c Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if len(c.Transcription.Languages) == 0 {
		return fmt.Errorf("transcription.languages must not be empty")
	}
	found := false
	for _, l := range c.Transcription.Languages {
		if l == c.Transcription.DefaultLanguage {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("transcription.default_language %q is not in transcription.languages", c.Transcription.DefaultLanguage)
	}
	if len(c.Transcription.PageTypes) == 0 {
		return fmt.Errorf("transcription.page_types must not be empty")
	}
	if c.Search.StopwordLanguage != "" && c.Search.StopwordLanguage != "en" {
		return fmt.Errorf("search.stopword_language %q is not supported", c.Search.StopwordLanguage)
	}
	return nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
