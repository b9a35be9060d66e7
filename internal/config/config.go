// Package config loads and validates the blogsmith.yaml configuration.
//
// Environment variables referenced as ${VAR} inside the YAML are expanded at
// load time; a .env file in the working directory is picked up first so local
// overrides (base URL, output dir) never need to be committed.
package config

import (
	"fmt"
	"os"
	"runtime"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Content ContentConfig `yaml:"content"`
	Images  ImagesConfig  `yaml:"images"`
	Output  OutputConfig  `yaml:"output"`
	Build   BuildConfig   `yaml:"build"`
	Serve   ServeConfig   `yaml:"serve"`
}

// SiteConfig holds site identity used in page metadata, the feed, and the sitemap.
type SiteConfig struct {
	Title       string `yaml:"title"`
	BaseURL     string `yaml:"base_url"`
	Description string `yaml:"description,omitempty"`
	Author      string `yaml:"author,omitempty"`
}

// ContentConfig controls content discovery and metadata extraction.
type ContentConfig struct {
	Dir     string   `yaml:"dir"`               // content root, defaults to ./content
	Include []string `yaml:"include,omitempty"` // doublestar globs relative to Dir, defaults to ["**/*.md"]
	Exclude []string `yaml:"exclude,omitempty"` // doublestar globs, e.g. ["drafts/**"]

	ExcerptLength  int  `yaml:"excerpt_length,omitempty"`   // runes, default 280
	WordsPerMinute int  `yaml:"words_per_minute,omitempty"` // reading speed, default 200
	GitInfo        bool `yaml:"git_info,omitempty"`         // derive last-modified from git history
}

// ImagesConfig enumerates the responsive variant targets.
type ImagesConfig struct {
	Widths  []int    `yaml:"widths,omitempty"`  // default [480, 960, 1600]
	Formats []string `yaml:"formats,omitempty"` // jpeg|png, default [jpeg]
	Quality int      `yaml:"quality,omitempty"` // jpeg quality, default 85
	Cache   string   `yaml:"cache,omitempty"`   // staleness cache DB, default .blogsmith/images.db
}

// OutputConfig represents output configuration
type OutputConfig struct {
	Directory string `yaml:"directory"` // wholly owned by the build; default ./public
}

// BuildConfig holds build performance tuning knobs.
type BuildConfig struct {
	// Concurrency caps parallel image and page work within a single build.
	// Defaults to the number of CPUs; values <1 are coerced to 1.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// ServeConfig configures the local development server.
type ServeConfig struct {
	Addr string `yaml:"addr,omitempty"` // default :4200
	// RebuildInterval, when set (e.g. "1h"), schedules periodic rebuilds so
	// future-dated posts go live without a manual rebuild.
	RebuildInterval string `yaml:"rebuild_interval,omitempty"`
}

// Validate checks cross-field constraints after defaults are applied.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Site,
		validation.Field(&c.Site.Title, validation.Required),
		validation.Field(&c.Site.BaseURL, validation.Required),
	); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	if err := validation.ValidateStruct(&c.Images,
		validation.Field(&c.Images.Widths, validation.Each(validation.Min(16), validation.Max(8192))),
		validation.Field(&c.Images.Formats, validation.Each(validation.In("jpeg", "png"))),
		validation.Field(&c.Images.Quality, validation.Min(1), validation.Max(100)),
	); err != nil {
		return fmt.Errorf("images: %w", err)
	}
	return nil
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists; absence is not an error.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Site.Title == "" {
		c.Site.Title = "Blog"
	}
	if c.Site.BaseURL == "" {
		c.Site.BaseURL = "http://localhost:4200"
	}
	if c.Content.Dir == "" {
		c.Content.Dir = "./content"
	}
	if len(c.Content.Include) == 0 {
		c.Content.Include = []string{"**/*.md"}
	}
	if c.Content.ExcerptLength == 0 {
		c.Content.ExcerptLength = 280
	}
	if c.Content.WordsPerMinute == 0 {
		c.Content.WordsPerMinute = 200
	}
	if len(c.Images.Widths) == 0 {
		c.Images.Widths = []int{480, 960, 1600}
	}
	if len(c.Images.Formats) == 0 {
		c.Images.Formats = []string{"jpeg"}
	}
	if c.Images.Quality == 0 {
		c.Images.Quality = 85
	}
	if c.Images.Cache == "" {
		c.Images.Cache = ".blogsmith/images.db"
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "./public"
	}
	if c.Build.Concurrency < 1 {
		c.Build.Concurrency = runtime.NumCPU()
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":4200"
	}
}
