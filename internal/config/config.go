// Package config loads the pipeline configuration: a YAML file describing
// the three model stages (parser, assessor, executor), cost tiers and
// thresholds, layered with environment overrides for provider credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StageConfig describes one LLM stage of the pipeline.
type StageConfig struct {
	Model       string  `yaml:"model"`
	Tier        string  `yaml:"tier"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// TierRates is the cost of a tier in USD per 1M tokens.
type TierRates struct {
	InputPer1M  float64 `yaml:"input_per_1m"`
	OutputPer1M float64 `yaml:"output_per_1m"`
}

// Config is the merged pipeline configuration.
type Config struct {
	Stages struct {
		// Parser is rule-based and issues no model calls; the block
		// carries only the pricing tier so telemetry stays complete if
		// a model-assisted parse path is configured later.
		Parser   StageConfig `yaml:"parser"`
		Assessor StageConfig `yaml:"assessor"`
		Executor StageConfig `yaml:"executor"`
	} `yaml:"stages"`

	CostTiers map[string]TierRates `yaml:"cost_tiers"`

	Thresholds struct {
		// MinConfidence gates proposal generation; boundary is inclusive.
		MinConfidence float64 `yaml:"min_confidence"`
		// ExecConfidence gates script synthesis and execution.
		ExecConfidence float64 `yaml:"exec_confidence"`
	} `yaml:"thresholds"`

	Output struct {
		BaseDir          string `yaml:"base_dir"`
		SaveIntermediate bool   `yaml:"save_intermediate"`
	} `yaml:"output"`

	LLM LLMEnv `yaml:"-"`
}

// LLMEnv holds provider settings sourced from the environment, so API keys
// never live in the checked-in YAML file.
type LLMEnv struct {
	BaseURL        string `env:"GIGPIPE_LLM_BASE_URL" envDefault:"http://localhost:1234/v1"`
	APIKey         string `env:"GIGPIPE_LLM_API_KEY"`
	Model          string `env:"GIGPIPE_LLM_MODEL"`
	TimeoutSeconds int    `env:"GIGPIPE_LLM_TIMEOUT_SECONDS" envDefault:"120"`
	MaxFailures    int    `env:"GIGPIPE_LLM_MAX_FAILURES" envDefault:"3"`
	CooldownSecs   int    `env:"GIGPIPE_LLM_COOLDOWN_SECONDS" envDefault:"60"`
}

func (e LLMEnv) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

func (e LLMEnv) Cooldown() time.Duration {
	if e.CooldownSecs <= 0 {
		return time.Minute
	}
	return time.Duration(e.CooldownSecs) * time.Second
}

func DefaultPath() string {
	return "pipeline.yaml"
}

// Load reads the YAML config at path (optional: a missing file yields
// defaults) and applies environment overrides. A .env file in the working
// directory is honored when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults are a complete working configuration.
	default:
		return Config{}, fmt.Errorf("read config: %s: %w", path, err)
	}

	if err := env.Parse(&cfg.LLM); err != nil {
		return Config{}, fmt.Errorf("parse env overrides: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

func defaults() Config {
	var cfg Config
	cfg.Stages.Parser = StageConfig{Tier: "cheap", MaxTokens: 1000, Temperature: 0}
	cfg.Stages.Assessor = StageConfig{Tier: "medium", MaxTokens: 1000, Temperature: 0.7}
	cfg.Stages.Executor = StageConfig{Tier: "medium", MaxTokens: 4000, Temperature: 0.3}
	cfg.CostTiers = map[string]TierRates{
		"cheap":     {InputPer1M: 0.10, OutputPer1M: 0.10},
		"medium":    {InputPer1M: 0.50, OutputPer1M: 0.50},
		"expensive": {InputPer1M: 3.00, OutputPer1M: 15.00},
	}
	cfg.Thresholds.MinConfidence = 0.5
	cfg.Thresholds.ExecConfidence = 0.9
	cfg.Output.BaseDir = "out"
	cfg.Output.SaveIntermediate = true
	return cfg
}

// Sanitize applies guardrails to values loaded from file and env.
func (c *Config) Sanitize() {
	if c.CostTiers == nil {
		c.CostTiers = defaults().CostTiers
	}
	if _, ok := c.CostTiers["medium"]; !ok {
		c.CostTiers["medium"] = TierRates{InputPer1M: 0.50, OutputPer1M: 0.50}
	}
	if c.Thresholds.MinConfidence < 0 || c.Thresholds.MinConfidence > 1 {
		c.Thresholds.MinConfidence = 0.5
	}
	if c.Thresholds.ExecConfidence < 0 || c.Thresholds.ExecConfidence > 1 {
		c.Thresholds.ExecConfidence = 0.9
	}
	if c.Output.BaseDir == "" {
		c.Output.BaseDir = "out"
	}
	for _, stage := range []*StageConfig{&c.Stages.Parser, &c.Stages.Assessor, &c.Stages.Executor} {
		if stage.Tier == "" {
			stage.Tier = "medium"
		}
		if stage.MaxTokens <= 0 {
			stage.MaxTokens = 1000
		}
	}
}
