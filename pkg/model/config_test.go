package model

import (
	"errors"
	"math"
	"testing"
)

func validConfig() Config {
	return Config{
		BoardSize:     3,
		InputChannels: 2,
		Depth:         2,
		DModel:        8,
		Heads:         2,
		DKey:          4,
		DValue:        4,
		DFF:           16,
		Dropout:       0.1,
	}
}

func TestConfigValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	testCases := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"zero_board", func(c *Config) { c.BoardSize = 0 }, "board size"},
		{"zero_channels", func(c *Config) { c.InputChannels = 0 }, "input channels"},
		{"zero_depth", func(c *Config) { c.Depth = 0 }, "depth"},
		{"negative_depth", func(c *Config) { c.Depth = -1 }, "depth"},
		{"zero_d_model", func(c *Config) { c.DModel = 0 }, "d_model"},
		{"zero_heads", func(c *Config) { c.Heads = 0 }, "heads"},
		{"zero_d_k", func(c *Config) { c.DKey = 0 }, "d_k"},
		{"zero_d_v", func(c *Config) { c.DValue = 0 }, "d_v"},
		{"zero_d_ff", func(c *Config) { c.DFF = 0 }, "d_ff"},
		{"negative_dropout", func(c *Config) { c.Dropout = -0.1 }, "dropout"},
		{"dropout_one", func(c *Config) { c.Dropout = 1 }, "dropout"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if cfgErr.Field != tc.wantField {
				t.Errorf("error names field %q, want %q", cfgErr.Field, tc.wantField)
			}
		})
	}
}

func TestConfigDeepNormConstants(t *testing.T) {
	cfg := validConfig() // depth 2

	wantAlpha := math.Pow(4, 0.25)
	if got := float64(cfg.Alpha()); math.Abs(got-wantAlpha) > 1e-6 {
		t.Errorf("Alpha() = %v, want %v", got, wantAlpha)
	}

	wantBeta := math.Pow(16, -0.25) // 0.5
	if got := float64(cfg.Beta()); math.Abs(got-wantBeta) > 1e-6 {
		t.Errorf("Beta() = %v, want %v", got, wantBeta)
	}

	// Deeper stacks scale the residual up and the sub-layer init down.
	deep := cfg
	deep.Depth = 32
	if deep.Alpha() <= cfg.Alpha() {
		t.Errorf("Alpha should grow with depth")
	}
	if deep.Beta() >= cfg.Beta() {
		t.Errorf("Beta should shrink with depth")
	}
}

func TestConfigSeqLen(t *testing.T) {
	cfg := validConfig()
	if cfg.SeqLen() != 9 {
		t.Errorf("SeqLen() = %d, want 9", cfg.SeqLen())
	}
}
