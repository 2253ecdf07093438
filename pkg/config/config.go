package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

const (
	defaultWindow          = "week"
	defaultBoardLimit      = 100
	defaultMaxContentChars = 2000
	defaultMinUpvotes      = 1
	defaultScoreThreshold  = 8
	defaultSummaryLanguage = "Chinese"
	defaultTitle           = "High-quality picks"
)

// time windows accepted by the forum top listing
var windows = []string{"hour", "day", "week", "month", "year", "all"}

// Config holds digest profiles, each one is a separate run of the pipeline and a separate email
type Config struct {
	Digests []Digest `yaml:"digests" json:"digests" jsonschema:"required,minItems=1,description=Digest profiles"`
}

// Digest holds parameters of a single digest
type Digest struct {
	Name            string  `yaml:"name" json:"name" jsonschema:"description=Profile name used in logs and --digest filter"`
	Subject         string  `yaml:"subject" json:"subject" jsonschema:"description=Email subject line"`
	Title           string  `yaml:"title" json:"title" jsonschema:"default=High-quality picks,description=Digest heading"`
	Window          string  `yaml:"window" json:"window" jsonschema:"default=week,enum=hour,enum=day,enum=week,enum=month,enum=year,enum=all,description=Top listing time window"`
	MaxContentChars int     `yaml:"max_content_chars" json:"max_content_chars" jsonschema:"default=2000,minimum=1,description=Max post characters sent to the model"`
	MinUpvotes      int     `yaml:"min_upvotes" json:"min_upvotes" jsonschema:"default=1,minimum=0,description=Posts need more upvotes than this to be evaluated; 0 or unset means 1"`
	ScoreThreshold  int     `yaml:"score_threshold" json:"score_threshold" jsonschema:"default=8,minimum=1,maximum=10,description=Minimum AI score to include a post"`
	SummaryLanguage string  `yaml:"summary_language" json:"summary_language" jsonschema:"default=Chinese,description=Language of generated summaries"`
	Boards          []Board `yaml:"boards" json:"boards" jsonschema:"required,minItems=1,description=Boards in digest order"`
}

// Board is a subreddit with the number of top posts to request
type Board struct {
	Name  string `yaml:"name" json:"name" jsonschema:"required,description=Subreddit name without r/"`
	Limit int    `yaml:"limit" json:"limit" jsonschema:"default=100,minimum=1,description=Number of top posts to request"`
}

// Default returns the built-in profile used when no profile file is given
func Default() *Config {
	cfg := &Config{Digests: []Digest{{
		Name:    "ml",
		Subject: "ML community daily picks",
		Boards:  []Board{{Name: "MachineLearning", Limit: 100}},
	}}}
	setDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	for i := range cfg.Digests {
		d := &cfg.Digests[i]
		if d.Name == "" {
			d.Name = fmt.Sprintf("digest-%d", i+1)
		}
		if d.Title == "" {
			d.Title = defaultTitle
		}
		if d.Subject == "" {
			d.Subject = d.Title
		}
		if d.Window == "" {
			d.Window = defaultWindow
		}
		if d.MaxContentChars == 0 {
			d.MaxContentChars = defaultMaxContentChars
		}
		if d.MinUpvotes == 0 {
			d.MinUpvotes = defaultMinUpvotes
		}
		if d.ScoreThreshold == 0 {
			d.ScoreThreshold = defaultScoreThreshold
		}
		if d.SummaryLanguage == "" {
			d.SummaryLanguage = defaultSummaryLanguage
		}
		for j := range d.Boards {
			if d.Boards[j].Limit == 0 {
				d.Boards[j].Limit = defaultBoardLimit
			}
		}
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if len(cfg.Digests) == 0 {
		return fmt.Errorf("at least one digest is required")
	}

	names := map[string]bool{}
	for _, d := range cfg.Digests {
		if names[d.Name] {
			return fmt.Errorf("duplicate digest name %q", d.Name)
		}
		names[d.Name] = true

		if len(d.Boards) == 0 {
			return fmt.Errorf("digest %s: at least one board is required", d.Name)
		}
		for _, b := range d.Boards {
			if b.Name == "" {
				return fmt.Errorf("digest %s: board name is required", d.Name)
			}
			if b.Limit < 0 {
				return fmt.Errorf("digest %s: board %s limit must be positive", d.Name, b.Name)
			}
		}
		if !slices.Contains(windows, d.Window) {
			return fmt.Errorf("digest %s: window must be one of %v", d.Name, windows)
		}
		if d.ScoreThreshold < 1 || d.ScoreThreshold > 10 {
			return fmt.Errorf("digest %s: score_threshold must be between 1 and 10", d.Name)
		}
		if d.MinUpvotes < 0 {
			return fmt.Errorf("digest %s: min_upvotes must not be negative", d.Name)
		}
		if d.MaxContentChars < 0 {
			return fmt.Errorf("digest %s: max_content_chars must be positive", d.Name)
		}
	}
	return nil
}

// Select returns digests with the given names in configured order, all digests if names is empty
func (c *Config) Select(names []string) ([]Digest, error) {
	if len(names) == 0 {
		return c.Digests, nil
	}
	res := make([]Digest, 0, len(names))
	for _, d := range c.Digests {
		if slices.Contains(names, d.Name) {
			res = append(res, d)
		}
	}
	if len(res) != len(names) {
		return nil, fmt.Errorf("unknown digest in %v", names)
	}
	return res, nil
}

// BoardNames returns names of the digest's boards in configured order
func (d Digest) BoardNames() []string {
	res := make([]string, len(d.Boards))
	for i, b := range d.Boards {
		res[i] = b.Name
	}
	return res
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
