// Package config defines the markusmoss configuration surface: the rc
// file, environment, and flag-backed settings that drive a pipeline run.
package config

import (
	"strconv"

	"github.com/spf13/viper"

	"github.com/MarkUsProject/markusmoss/internal/similarity"
)

// Config represents the complete markusmoss configuration.
type Config struct {
	Markus  MarkusConfig  `mapstructure:"markus" toml:"markus"`
	Moss    MossConfig    `mapstructure:"moss" toml:"moss"`
	Select  SelectConfig  `mapstructure:"select" toml:"select"`
	Logging LoggingConfig `mapstructure:"logging" toml:"logging"`

	// Workdir is the working directory holding all downloaded and
	// generated files (default: ".")
	Workdir string `mapstructure:"workdir" toml:"workdir"`
	// Language is the submission language passed to the similarity
	// service (e.g. "python", "java", "c")
	Language string `mapstructure:"language" toml:"language"`
	// FileGlob restricts which submission files are considered, as a
	// glob over paths relative to each group's submission directory
	// (default: "**/*", everything)
	FileGlob string `mapstructure:"file_glob" toml:"file_glob"`
	// Groups restricts the run to the named groups. Empty means all
	// groups in the assignment.
	Groups []string `mapstructure:"groups" toml:"groups"`
	// Actions lists the pipeline actions to run. Empty means all.
	Actions []string `mapstructure:"actions" toml:"actions"`
	// Exclude drops specific matches from cases before rollup, keyed by
	// case number: exclude."1" = [0, 3] drops matches 0 and 3 from case 1.
	// Keys are strings because TOML tables cannot have integer keys.
	Exclude map[string][]int `mapstructure:"exclude" toml:"exclude"`
	// Force re-runs the requested actions even when completion markers
	// say they already ran.
	Force bool `mapstructure:"force" toml:"force"`
}

// MarkusConfig holds credentials and addressing for the course-management
// service.
type MarkusConfig struct {
	// APIKey is the MarkUs API token
	APIKey string `mapstructure:"api_key" toml:"api_key"`
	// URL is the MarkUs instance base URL (e.g. "https://markus.example.edu")
	URL string `mapstructure:"url" toml:"url"`
	// Course is the course name as known to MarkUs
	Course string `mapstructure:"course" toml:"course"`
	// Assignment is the short identifier of the assignment to process
	Assignment string `mapstructure:"assignment" toml:"assignment"`
}

// MossConfig holds settings for the similarity-detection service.
type MossConfig struct {
	// UserID is the registered MOSS account number
	UserID int64 `mapstructure:"user_id" toml:"user_id"`
	// ReportURL overrides the submitted report URL; useful when the
	// submission happened elsewhere and only the report should be mirrored
	ReportURL string `mapstructure:"report_url" toml:"report_url"`
	// MaxMatches is the -m setting: the number of times a passage may
	// appear before it is ignored as boilerplate (default: 10)
	MaxMatches int `mapstructure:"max_matches" toml:"max_matches"`
	// ShowResults is the -n setting: how many matches the report shows
	// (default: 250)
	ShowResults int `mapstructure:"show_results" toml:"show_results"`
}

// SelectConfig narrows report compilation or case selection to a subset
// of cases. Case and Groups are mutually exclusive.
type SelectConfig struct {
	// Case selects one case by its natural number (0 = no selection)
	Case int `mapstructure:"case" toml:"case"`
	// Groups builds synthetic cases from explicit group-name sets
	Groups [][]string `mapstructure:"groups" toml:"groups"`
}

// LoggingConfig controls the debug log written under the workdir.
type LoggingConfig struct {
	// Enabled controls whether the debug log is written (default: true)
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" toml:"level"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Workdir:  ".",
		FileGlob: "**/*",
		Moss: MossConfig{
			MaxMatches:  10,
			ShowResults: 250,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("workdir", defaults.Workdir)
	viper.SetDefault("file_glob", defaults.FileGlob)
	viper.SetDefault("force", defaults.Force)

	// Moss defaults
	viper.SetDefault("moss.max_matches", defaults.Moss.MaxMatches)
	viper.SetDefault("moss.show_results", defaults.Moss.ShowResults)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the configuration from viper into a Config struct and
// validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// HasKey reports whether the named configuration key has a usable value.
// Actions declare the keys they need by these names; the executor checks
// them before running anything.
func (c *Config) HasKey(key string) bool {
	switch key {
	case "markus.api_key":
		return c.Markus.APIKey != ""
	case "markus.url":
		return c.Markus.URL != ""
	case "markus.course":
		return c.Markus.Course != ""
	case "markus.assignment":
		return c.Markus.Assignment != ""
	case "moss.user_id":
		return c.Moss.UserID != 0
	case "moss.report_url":
		return c.Moss.ReportURL != ""
	case "workdir":
		return c.Workdir != ""
	case "language":
		return c.Language != ""
	}
	return false
}

// Selection converts the select settings into a clustering selection.
func (c *Config) Selection() similarity.Selection {
	if c.Select.Case != 0 {
		return similarity.SelectCase(c.Select.Case)
	}
	if len(c.Select.Groups) > 0 {
		return similarity.SelectGroups(c.Select.Groups...)
	}
	return similarity.Selection{}
}

// Exclusions converts the string-keyed exclude table into the clustering
// exclusion map. Validate has already vetted the keys, so parse failures
// are simply skipped here.
func (c *Config) Exclusions() similarity.Exclusions {
	if len(c.Exclude) == 0 {
		return nil
	}
	out := make(similarity.Exclusions, len(c.Exclude))
	for key, indices := range c.Exclude {
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		out[n] = indices
	}
	return out
}
