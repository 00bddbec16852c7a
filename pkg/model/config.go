// Package model implements the attention tower used as the perception
// stage of the game-playing agent: a channel-expansion projection, a
// learned positional embedding and a stack of residual encoder layers
// over a fixed-size board, with DeepNorm depth scaling.
package model

import (
	"fmt"
	"math"
)

// Config fixes the geometry of an attention tower. All parameters are
// set once at construction; the tower rejects inputs that disagree with
// BoardSize or InputChannels.
type Config struct {
	// BoardSize is the height and width of the square input board.
	BoardSize int

	// InputChannels is the channel count of the spatial input.
	InputChannels int

	// Depth is the number of encoder layers. The DeepNorm constants
	// Alpha and Beta are derived from it, so it must be at least 1.
	Depth int

	// DModel is the internal channel width shared by all layers.
	DModel int

	// Heads is the number of attention heads per layer.
	Heads int

	// DKey is the per-head query/key width.
	DKey int

	// DValue is the per-head value width.
	DValue int

	// DFF is the hidden width of the feed-forward block.
	DFF int

	// Dropout is the training-time element drop probability.
	Dropout float32
}

// ConfigError reports an invalid construction parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tower config: %s %s", e.Field, e.Reason)
}

// Validate checks the configuration, returning a *ConfigError naming
// the first offending field.
func (c Config) Validate() error {
	positive := []struct {
		field string
		value int
	}{
		{"board size", c.BoardSize},
		{"input channels", c.InputChannels},
		{"depth", c.Depth},
		{"d_model", c.DModel},
		{"heads", c.Heads},
		{"d_k", c.DKey},
		{"d_v", c.DValue},
		{"d_ff", c.DFF},
	}
	for _, p := range positive {
		if p.value < 1 {
			return &ConfigError{Field: p.field, Reason: fmt.Sprintf("must be at least 1, got %d", p.value)}
		}
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return &ConfigError{Field: "dropout", Reason: fmt.Sprintf("must be in [0, 1), got %g", c.Dropout)}
	}
	return nil
}

// Alpha is the DeepNorm residual-branch scale, (2*Depth)^(1/4).
func (c Config) Alpha() float32 {
	return float32(math.Pow(2*float64(c.Depth), 0.25))
}

// Beta is the DeepNorm initialization gain for weights feeding a
// residual-scaled normalization, (8*Depth)^(-1/4).
func (c Config) Beta() float32 {
	return float32(math.Pow(8*float64(c.Depth), -0.25))
}

// SeqLen is the sequence length of the flattened board.
func (c Config) SeqLen() int {
	return c.BoardSize * c.BoardSize
}
