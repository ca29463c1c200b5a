package config

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"elcs/internal/classifier"
	"elcs/internal/fragment"

	"gopkg.in/yaml.v3"
)

// Config holds all eLCS configuration.
type Config struct {
	// Seed drives the single random stream threaded through every operator.
	// Zero seeds from the clock.
	Seed int64 `yaml:"seed"`

	Problem    ProblemConfig    `yaml:"problem"`
	Learning   LearningConfig   `yaml:"learning"`
	Generation GenerationConfig `yaml:"generation"`
	Library    LibraryConfig    `yaml:"library"`
	Store      StoreConfig      `yaml:"store"`
	Population PopulationConfig `yaml:"population"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ProblemConfig describes the attribute vector and phenotype domain.
type ProblemConfig struct {
	NumAttributes int      `yaml:"num_attributes"`
	Discrete      bool     `yaml:"discrete"`
	Labels        []string `yaml:"labels"`
	PhenotypeMin  float64  `yaml:"phenotype_min"`
	PhenotypeMax  float64  `yaml:"phenotype_max"`
}

// LearningConfig holds the classifier update and GA parameters.
type LearningConfig struct {
	PSpec       float64 `yaml:"p_spec"`
	Mu          float64 `yaml:"mu"`
	Nu          float64 `yaml:"nu"`
	Beta        float64 `yaml:"beta"`
	ThetaSub    int     `yaml:"theta_sub"`
	AccSub      float64 `yaml:"acc_sub"`
	ThetaDel    int     `yaml:"theta_del"`
	Delta       float64 `yaml:"delta"`
	InitFitness float64 `yaml:"init_fitness"`
}

// GenerationConfig bounds code fragment synthesis.
type GenerationConfig struct {
	MaxDepth    int `yaml:"max_depth"`
	Level       int `yaml:"level"`
	CoverTrials int `yaml:"cover_trials"`
	CoverPasses int `yaml:"cover_passes"`
}

// LibraryConfig locates the fragment pool files.
type LibraryConfig struct {
	Dir      string `yaml:"dir"`
	MaxLevel int    `yaml:"max_level"`
	Watch    bool   `yaml:"watch"`
	Debounce string `yaml:"debounce"`
}

// StoreConfig configures the snapshot database.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// PopulationConfig configures population-wide passes.
type PopulationConfig struct {
	Workers int `yaml:"workers"` // 0 = GOMAXPROCS
}

// DefaultConfig returns the default configuration: a 6-attribute binary problem.
func DefaultConfig() *Config {
	return &Config{
		Problem: ProblemConfig{
			NumAttributes: 6,
			Discrete:      true,
			Labels:        []string{"0", "1"},
			PhenotypeMax:  1,
		},
		Learning: LearningConfig{
			PSpec:       0.5,
			Mu:          0.04,
			Nu:          5,
			Beta:        0.2,
			ThetaSub:    20,
			AccSub:      0.99,
			ThetaDel:    20,
			Delta:       0.1,
			InitFitness: 0.01,
		},
		Generation: GenerationConfig{
			MaxDepth:    fragment.DefaultMaxDepth,
			Level:       1,
			CoverTrials: classifier.DefaultCoverTrials,
			CoverPasses: classifier.DefaultCoverPasses,
		},
		Library: LibraryConfig{
			Dir:      "metadata",
			MaxLevel: 4,
			Debounce: "500ms",
		},
		Store: StoreConfig{
			DatabasePath: "data/elcs.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if s := os.Getenv("ELCS_SEED"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ELCS_SEED %q: %w", s, err)
		}
		c.Seed = seed
	}
	if dir := os.Getenv("ELCS_LIBRARY_DIR"); dir != "" {
		c.Library.Dir = dir
	}
	if path := os.Getenv("ELCS_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if level := os.Getenv("ELCS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// GetDebounce returns the pool watcher debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Library.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// Environment builds the classifier environment. lib may be nil.
func (c *Config) Environment(lib fragment.Library) *classifier.Environment {
	labels := make([]string, len(c.Problem.Labels))
	copy(labels, c.Problem.Labels)

	return &classifier.Environment{
		Discrete:      c.Problem.Discrete,
		Labels:        labels,
		PhenotypeMin:  c.Problem.PhenotypeMin,
		PhenotypeMax:  c.Problem.PhenotypeMax,
		NumAttributes: c.Problem.NumAttributes,
		PSpec:         c.Learning.PSpec,
		Mu:            c.Learning.Mu,
		Nu:            c.Learning.Nu,
		Beta:          c.Learning.Beta,
		ThetaSub:      c.Learning.ThetaSub,
		AccSub:        c.Learning.AccSub,
		ThetaDel:      c.Learning.ThetaDel,
		Delta:         c.Learning.Delta,
		InitFitness:   c.Learning.InitFitness,
		MaxDepth:      c.Generation.MaxDepth,
		Level:         c.Generation.Level,
		Library:       lib,
		CoverTrials:   c.Generation.CoverTrials,
		CoverPasses:   c.Generation.CoverPasses,
	}
}

// NewRand returns the run's random stream.
func (c *Config) NewRand() *rand.Rand {
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Environment(nil).Validate(); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	if c.Library.MaxLevel < 0 {
		return fmt.Errorf("library.max_level must not be negative, got %d", c.Library.MaxLevel)
	}
	if c.Generation.Level > 1 && c.Library.MaxLevel < c.Generation.Level-1 {
		return fmt.Errorf("library.max_level %d does not cover generation level %d", c.Library.MaxLevel, c.Generation.Level)
	}
	if c.Library.Debounce != "" {
		if _, err := time.ParseDuration(c.Library.Debounce); err != nil {
			return fmt.Errorf("invalid library.debounce: %w", err)
		}
	}
	if c.Population.Workers < 0 {
		return fmt.Errorf("population.workers must not be negative, got %d", c.Population.Workers)
	}
	switch c.Logging.Format {
	case "", "json", "console", "text":
	default:
		return fmt.Errorf("invalid logging.format: %s (valid: json, console, text)", c.Logging.Format)
	}
	return nil
}
