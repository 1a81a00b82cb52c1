// Package config handles sicsearch configuration via YAML files and environment variables.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags (--dim, --workers, etc.)
//  2. Environment variables (SICSEARCH_*)
//  3. Config file (sicsearch.yaml)
//  4. Built-in defaults
//
// Example Usage:
//
//	cfg, err := config.LoadFromFile(config.FindConfigFile())
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// Environment Variables (all use SICSEARCH_ prefix):
//
// Search:
//   - SICSEARCH_DIMENSION=42
//   - SICSEARCH_INITIAL_SEED=227
//   - SICSEARCH_SEED_BUDGET=100
//   - SICSEARCH_WORKERS=17 (0 = one per logical CPU)
//   - SICSEARCH_CADENCE="auto", "batched" or "drain"
//   - SICSEARCH_CADENCE_THRESHOLD=35
//   - SICSEARCH_VERIFY_POVM=false
//
// Minimizer:
//   - SICSEARCH_STEP_SIZE=0.2
//   - SICSEARCH_MAX_ITER=100000
//   - SICSEARCH_BLOCK_SIZE=100
//   - SICSEARCH_STALL_FACTOR=0.999
//   - SICSEARCH_FIRST_ANNEAL_LOSS=1e-13
//   - SICSEARCH_SECOND_ANNEAL_LOSS=1e-14
//   - SICSEARCH_CONVERGED_LOSS=1e-15
//   - SICSEARCH_ACCEPT_LOSS=2e-15
//
// Gradient:
//   - SICSEARCH_FD_STEP=1e-10
//   - SICSEARCH_GRADIENT_CHECK=false
//   - SICSEARCH_GRADIENT_CHECK_TOLERANCE=1e-5
//
// Output:
//   - SICSEARCH_OUTPUT_DIR="output"
//   - SICSEARCH_RECORD_TRAJECTORY=false
//   - SICSEARCH_CATALOG_ENABLED=false
//   - SICSEARCH_CATALOG_DIR="output/catalog"
//
// Logging:
//   - SICSEARCH_LOG_LEVEL="INFO"
//   - SICSEARCH_LOG_FORMAT="text" or "json"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	psutil "github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v3"

	"github.com/orneryd/sicsearch/pkg/minimizer"
	"github.com/orneryd/sicsearch/pkg/search"
)

// Cadence names accepted in SearchConfig.Cadence.
const (
	CadenceAuto    = "auto"
	CadenceBatched = "batched"
	CadenceDrain   = "drain"
)

// MaxDimension is the largest dimension the three-digit output names can hold.
const MaxDimension = 999

// Config holds all sicsearch configuration.
//
// Configuration is organized into logical sections:
//   - Search: seed loop and worker pool
//   - Minimizer: gradient-descent thresholds
//   - Gradient: finite-difference validation
//   - Output: result files and the catalog
//   - Logging: logging configuration
//
// A Config is built once at startup and treated as read-only after Validate.
type Config struct {
	Search    SearchConfig
	Minimizer MinimizerConfig
	Gradient  GradientConfig
	Output    OutputConfig
	Logging   LoggingConfig
}

// SearchConfig holds the seed loop and worker pool settings.
type SearchConfig struct {
	Dimension   int
	InitialSeed uint64
	SeedBudget  int
	// Workers is the pool size. Zero means one per logical CPU.
	Workers int
	// Cadence is "auto", "batched" or "drain". Auto picks batched below
	// CadenceThreshold and drain at or above it.
	Cadence          string
	CadenceThreshold int
	// VerifyPOVM checks every accepted vector's orbit overlaps.
	VerifyPOVM bool
}

// MinimizerConfig holds the descent thresholds. The defaults are empirical
// for the G-matrix loss.
type MinimizerConfig struct {
	StepSize         float64
	MaxIter          int
	BlockSize        int
	StallFactor      float64
	FirstAnnealLoss  float64
	SecondAnnealLoss float64
	ConvergedLoss    float64
	AcceptLoss       float64
}

// GradientConfig holds the finite-difference self-check settings.
type GradientConfig struct {
	FiniteDifferenceStep float64
	// Check compares analytic and numerical gradients before a search starts.
	Check          bool
	CheckTolerance float64
}

// OutputConfig holds persistence settings.
type OutputConfig struct {
	Dir              string
	RecordTrajectory bool
	CatalogEnabled   bool
	CatalogDir       string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadDefaults returns a Config holding the built-in defaults.
func LoadDefaults() *Config {
	mo := minimizer.DefaultOptions()
	return &Config{
		Search: SearchConfig{
			Dimension:        42,
			InitialSeed:      227,
			SeedBudget:       100,
			Workers:          17,
			Cadence:          CadenceAuto,
			CadenceThreshold: 35,
		},
		Minimizer: MinimizerConfig{
			StepSize:         mo.StepSize,
			MaxIter:          mo.MaxIter,
			BlockSize:        mo.BlockSize,
			StallFactor:      mo.StallFactor,
			FirstAnnealLoss:  mo.FirstAnnealLoss,
			SecondAnnealLoss: mo.SecondAnnealLoss,
			ConvergedLoss:    mo.ConvergedLoss,
			AcceptLoss:       mo.AcceptLoss,
		},
		Gradient: GradientConfig{
			FiniteDifferenceStep: 1e-10,
			CheckTolerance:       1e-5,
		},
		Output: OutputConfig{
			Dir:        "output",
			CatalogDir: filepath.Join("output", "catalog"),
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// LoadFromEnv returns defaults overridden by SICSEARCH_* environment variables.
func LoadFromEnv() *Config {
	cfg := LoadDefaults()
	applyEnvVars(cfg)
	return cfg
}

// ApplyEnvVars overrides cfg with any SICSEARCH_* environment variables that are set.
func ApplyEnvVars(cfg *Config) {
	applyEnvVars(cfg)
}

func applyEnvVars(cfg *Config) {
	s := &cfg.Search
	s.Dimension = getEnvInt("SICSEARCH_DIMENSION", s.Dimension)
	s.InitialSeed = getEnvUint64("SICSEARCH_INITIAL_SEED", s.InitialSeed)
	s.SeedBudget = getEnvInt("SICSEARCH_SEED_BUDGET", s.SeedBudget)
	s.Workers = getEnvInt("SICSEARCH_WORKERS", s.Workers)
	s.Cadence = strings.ToLower(getEnv("SICSEARCH_CADENCE", s.Cadence))
	s.CadenceThreshold = getEnvInt("SICSEARCH_CADENCE_THRESHOLD", s.CadenceThreshold)
	s.VerifyPOVM = getEnvBool("SICSEARCH_VERIFY_POVM", s.VerifyPOVM)

	m := &cfg.Minimizer
	m.StepSize = getEnvFloat("SICSEARCH_STEP_SIZE", m.StepSize)
	m.MaxIter = getEnvInt("SICSEARCH_MAX_ITER", m.MaxIter)
	m.BlockSize = getEnvInt("SICSEARCH_BLOCK_SIZE", m.BlockSize)
	m.StallFactor = getEnvFloat("SICSEARCH_STALL_FACTOR", m.StallFactor)
	m.FirstAnnealLoss = getEnvFloat("SICSEARCH_FIRST_ANNEAL_LOSS", m.FirstAnnealLoss)
	m.SecondAnnealLoss = getEnvFloat("SICSEARCH_SECOND_ANNEAL_LOSS", m.SecondAnnealLoss)
	m.ConvergedLoss = getEnvFloat("SICSEARCH_CONVERGED_LOSS", m.ConvergedLoss)
	m.AcceptLoss = getEnvFloat("SICSEARCH_ACCEPT_LOSS", m.AcceptLoss)

	g := &cfg.Gradient
	g.FiniteDifferenceStep = getEnvFloat("SICSEARCH_FD_STEP", g.FiniteDifferenceStep)
	g.Check = getEnvBool("SICSEARCH_GRADIENT_CHECK", g.Check)
	g.CheckTolerance = getEnvFloat("SICSEARCH_GRADIENT_CHECK_TOLERANCE", g.CheckTolerance)

	o := &cfg.Output
	o.Dir = getEnv("SICSEARCH_OUTPUT_DIR", o.Dir)
	o.RecordTrajectory = getEnvBool("SICSEARCH_RECORD_TRAJECTORY", o.RecordTrajectory)
	o.CatalogEnabled = getEnvBool("SICSEARCH_CATALOG_ENABLED", o.CatalogEnabled)
	o.CatalogDir = getEnv("SICSEARCH_CATALOG_DIR", o.CatalogDir)

	cfg.Logging.Level = getEnv("SICSEARCH_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("SICSEARCH_LOG_FORMAT", cfg.Logging.Format)
}

// YAMLConfig represents the YAML configuration file structure.
// Pointer fields distinguish "absent" from an explicit zero or false.
type YAMLConfig struct {
	Search struct {
		Dimension        int     `yaml:"dimension"`
		InitialSeed      *uint64 `yaml:"initial_seed"`
		SeedBudget       int     `yaml:"seed_budget"`
		Workers          *int    `yaml:"workers"`
		Cadence          string  `yaml:"cadence"`
		CadenceThreshold int     `yaml:"cadence_threshold"`
		VerifyPOVM       *bool   `yaml:"verify_povm"`
	} `yaml:"search"`

	Minimizer struct {
		StepSize         float64 `yaml:"step_size"`
		MaxIter          int     `yaml:"max_iter"`
		BlockSize        int     `yaml:"block_size"`
		StallFactor      float64 `yaml:"stall_factor"`
		FirstAnnealLoss  float64 `yaml:"first_anneal_loss"`
		SecondAnnealLoss float64 `yaml:"second_anneal_loss"`
		ConvergedLoss    float64 `yaml:"converged_loss"`
		AcceptLoss       float64 `yaml:"accept_loss"`
	} `yaml:"minimizer"`

	Gradient struct {
		FiniteDifferenceStep float64 `yaml:"finite_difference_step"`
		Check                *bool   `yaml:"check"`
		CheckTolerance       float64 `yaml:"check_tolerance"`
	} `yaml:"gradient"`

	Output struct {
		Dir              string `yaml:"dir"`
		RecordTrajectory *bool  `yaml:"record_trajectory"`
		Catalog          struct {
			Enabled *bool  `yaml:"enabled"`
			Dir     string `yaml:"dir"`
		} `yaml:"catalog"`
	} `yaml:"output"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadFromFile loads configuration with proper precedence:
//  1. Built-in defaults (lowest priority)
//  2. YAML config file
//  3. Environment variables (highest priority before CLI args)
//
// Command-line flags are applied by the caller after this. A missing file
// (or an empty path) is not an error.
//
// Example YAML:
//
//	search:
//	  dimension: 7
//	  workers: 8
//	  cadence: batched
//	minimizer:
//	  max_iter: 50000
//	output:
//	  dir: results
//	  catalog:
//	    enabled: true
func LoadFromFile(configPath string) (*Config, error) {
	cfg := LoadDefaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			var yamlCfg YAMLConfig
			if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			applyYAML(cfg, &yamlCfg)
		}
	}

	applyEnvVars(cfg)
	return cfg, nil
}

func applyYAML(cfg *Config, y *YAMLConfig) {
	// === Search Settings ===
	if y.Search.Dimension > 0 {
		cfg.Search.Dimension = y.Search.Dimension
	}
	if y.Search.InitialSeed != nil {
		cfg.Search.InitialSeed = *y.Search.InitialSeed
	}
	if y.Search.SeedBudget > 0 {
		cfg.Search.SeedBudget = y.Search.SeedBudget
	}
	if y.Search.Workers != nil {
		cfg.Search.Workers = *y.Search.Workers
	}
	if y.Search.Cadence != "" {
		cfg.Search.Cadence = strings.ToLower(y.Search.Cadence)
	}
	if y.Search.CadenceThreshold > 0 {
		cfg.Search.CadenceThreshold = y.Search.CadenceThreshold
	}
	if y.Search.VerifyPOVM != nil {
		cfg.Search.VerifyPOVM = *y.Search.VerifyPOVM
	}

	// === Minimizer Settings ===
	m := &cfg.Minimizer
	if y.Minimizer.StepSize > 0 {
		m.StepSize = y.Minimizer.StepSize
	}
	if y.Minimizer.MaxIter > 0 {
		m.MaxIter = y.Minimizer.MaxIter
	}
	if y.Minimizer.BlockSize > 0 {
		m.BlockSize = y.Minimizer.BlockSize
	}
	if y.Minimizer.StallFactor > 0 {
		m.StallFactor = y.Minimizer.StallFactor
	}
	if y.Minimizer.FirstAnnealLoss > 0 {
		m.FirstAnnealLoss = y.Minimizer.FirstAnnealLoss
	}
	if y.Minimizer.SecondAnnealLoss > 0 {
		m.SecondAnnealLoss = y.Minimizer.SecondAnnealLoss
	}
	if y.Minimizer.ConvergedLoss > 0 {
		m.ConvergedLoss = y.Minimizer.ConvergedLoss
	}
	if y.Minimizer.AcceptLoss > 0 {
		m.AcceptLoss = y.Minimizer.AcceptLoss
	}

	// === Gradient Settings ===
	if y.Gradient.FiniteDifferenceStep > 0 {
		cfg.Gradient.FiniteDifferenceStep = y.Gradient.FiniteDifferenceStep
	}
	if y.Gradient.Check != nil {
		cfg.Gradient.Check = *y.Gradient.Check
	}
	if y.Gradient.CheckTolerance > 0 {
		cfg.Gradient.CheckTolerance = y.Gradient.CheckTolerance
	}

	// === Output Settings ===
	if y.Output.Dir != "" {
		cfg.Output.Dir = y.Output.Dir
		cfg.Output.CatalogDir = filepath.Join(y.Output.Dir, "catalog")
	}
	if y.Output.RecordTrajectory != nil {
		cfg.Output.RecordTrajectory = *y.Output.RecordTrajectory
	}
	if y.Output.Catalog.Enabled != nil {
		cfg.Output.CatalogEnabled = *y.Output.Catalog.Enabled
	}
	if y.Output.Catalog.Dir != "" {
		cfg.Output.CatalogDir = y.Output.Catalog.Dir
	}

	// === Logging Settings ===
	if y.Logging.Level != "" {
		cfg.Logging.Level = y.Logging.Level
	}
	if y.Logging.Format != "" {
		cfg.Logging.Format = y.Logging.Format
	}
}

// Validate checks the configuration for logical errors and invalid values.
//
// Returns nil if configuration is valid, or an error describing the problem.
func (c *Config) Validate() error {
	s := c.Search
	if s.Dimension < 2 || s.Dimension > MaxDimension {
		return fmt.Errorf("invalid dimension: %d (must be in [2, %d])", s.Dimension, MaxDimension)
	}
	if s.SeedBudget <= 0 {
		return fmt.Errorf("invalid seed budget: %d", s.SeedBudget)
	}
	if s.Workers < 0 {
		return fmt.Errorf("invalid worker count: %d", s.Workers)
	}
	switch s.Cadence {
	case CadenceAuto, CadenceBatched, CadenceDrain:
	default:
		return fmt.Errorf("invalid cadence: %q (want auto, batched or drain)", s.Cadence)
	}
	if s.Cadence == CadenceAuto && s.CadenceThreshold <= 0 {
		return fmt.Errorf("invalid cadence threshold: %d", s.CadenceThreshold)
	}

	m := c.Minimizer
	if m.StepSize <= 0 {
		return fmt.Errorf("invalid step size: %g", m.StepSize)
	}
	if m.MaxIter <= 0 {
		return fmt.Errorf("invalid max iterations: %d", m.MaxIter)
	}
	if m.BlockSize <= 0 {
		return fmt.Errorf("invalid block size: %d", m.BlockSize)
	}
	if m.StallFactor <= 0 || m.StallFactor >= 1 {
		return fmt.Errorf("invalid stall factor: %g (must be in (0, 1))", m.StallFactor)
	}
	if m.ConvergedLoss <= 0 || m.AcceptLoss < m.ConvergedLoss {
		return fmt.Errorf("converged loss %g must be positive and not above accept loss %g", m.ConvergedLoss, m.AcceptLoss)
	}
	if m.SecondAnnealLoss >= m.FirstAnnealLoss {
		return fmt.Errorf("second anneal loss %g must be below first anneal loss %g", m.SecondAnnealLoss, m.FirstAnnealLoss)
	}

	if c.Gradient.FiniteDifferenceStep <= 0 {
		return fmt.Errorf("invalid finite-difference step: %g", c.Gradient.FiniteDifferenceStep)
	}
	if c.Gradient.Check && c.Gradient.CheckTolerance <= 0 {
		return fmt.Errorf("invalid gradient check tolerance: %g", c.Gradient.CheckTolerance)
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output directory must be set")
	}
	if c.Output.CatalogEnabled && c.Output.CatalogDir == "" {
		return fmt.Errorf("catalog enabled but no catalog directory set")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}

// String returns a compact representation of the Config suitable for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Dim: %d, Seeds: %d+%d, Workers: %d, Cadence: %s, Output: %s, Catalog: %v}",
		c.Search.Dimension,
		c.Search.InitialSeed, c.Search.SeedBudget,
		c.Search.Workers,
		c.Search.Cadence,
		c.Output.Dir,
		c.Output.CatalogEnabled,
	)
}

// MinimizerOptions translates the Minimizer and Output sections.
func (c *Config) MinimizerOptions() minimizer.Options {
	m := c.Minimizer
	return minimizer.Options{
		StepSize:         m.StepSize,
		MaxIter:          m.MaxIter,
		BlockSize:        m.BlockSize,
		StallFactor:      m.StallFactor,
		ConvergedLoss:    m.ConvergedLoss,
		FirstAnnealLoss:  m.FirstAnnealLoss,
		SecondAnnealLoss: m.SecondAnnealLoss,
		AcceptLoss:       m.AcceptLoss,
		RecordTrajectory: c.Output.RecordTrajectory,
	}
}

// Cadence resolves the configured cadence for the configured dimension.
func (c *Config) Cadence() search.Cadence {
	switch c.Search.Cadence {
	case CadenceBatched:
		return search.CadenceBatched
	case CadenceDrain:
		return search.CadenceDrain
	default:
		return search.CadenceFor(c.Search.Dimension, c.Search.CadenceThreshold)
	}
}

// ResolveWorkers returns Search.Workers, or the logical CPU count when it is zero.
func (c *Config) ResolveWorkers() int {
	if c.Search.Workers > 0 {
		return c.Search.Workers
	}
	if n, err := psutil.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// FindConfigFile searches for a config file in standard locations.
// Returns the path to the first config file found, or empty string if none found.
// Search order:
//  1. ~/.sicsearch/config.yaml
//  2. Current working directory (sicsearch.yaml, config.yaml)
//  3. ~/.config/sicsearch/config.yaml (XDG)
func FindConfigFile() string {
	var candidates []string

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".sicsearch", "config.yaml"))
	}
	candidates = append(candidates, "sicsearch.yaml", "config.yaml")
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "sicsearch", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvUint64(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if u, err := strconv.ParseUint(val, 10, 64); err == nil {
			return u
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
