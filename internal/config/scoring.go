package config

import (
	"fmt"
	"os"

	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/scoring"
	yaml "gopkg.in/yaml.v3"
)

// ScoringConfig holds the tier tables and section A weights.
type ScoringConfig struct {
	Text    scoring.TierTable  `yaml:"text"`
	Voice   scoring.TierTable  `yaml:"voice"`
	Weights evaluation.Weights `yaml:"weights"`
}

// DefaultScoring returns the compiled-in tables.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Text:    scoring.DefaultTextTiers,
		Voice:   scoring.DefaultVoiceTiers,
		Weights: evaluation.DefaultWeights,
	}
}

// Calculator returns a calculator using the configured tables.
func (c ScoringConfig) Calculator() *scoring.Calculator {
	return &scoring.Calculator{Text: c.Text, Voice: c.Voice}
}

// LoadScoring reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func LoadScoring(path string) (ScoringConfig, error) {
	cfg := DefaultScoring()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read scoring config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse scoring config: %w", err)
	}
	if err := cfg.Text.Validate(); err != nil {
		return cfg, fmt.Errorf("text tiers: %w", err)
	}
	if err := cfg.Voice.Validate(); err != nil {
		return cfg, fmt.Errorf("voice tiers: %w", err)
	}
	if cfg.Weights.SpotlightPoints < 0 || cfg.Weights.EventPoints < 0 {
		return cfg, fmt.Errorf("weights must be >= 0: %+v", cfg.Weights)
	}
	return cfg, nil
}
