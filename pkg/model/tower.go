package model

import (
	"fmt"

	"github.com/andreaslam/kZero/pkg/tensor"
)

// AttentionTower converts a multi-channel board tensor into a
// same-shaped feature tensor: channel expansion, learned positional
// embedding, then a fixed stack of encoder layers run over the board
// flattened to a sequence.
//
// All parameters are created once at construction. A forward pass reads
// them but never writes; concurrent forward calls may share a tower as
// long as the optimizer is not updating it at the same time.
type AttentionTower struct {
	Config Config

	Expand *Conv1x1

	// PosEmb is the learned positional embedding, broadcast over the
	// batch during the forward pass.
	PosEmb *tensor.Tensor // (DModel, BoardSize, BoardSize)

	// Encoders is fixed-length; layer i is owned by this tower and
	// never aliased with another layer.
	Encoders []*EncoderLayer

	Training bool
}

// NewAttentionTower validates cfg and constructs a tower with freshly
// initialized parameters. The positional embedding is drawn from a unit
// normal; layer initialization follows the DeepNorm policy described on
// EncoderLayer.
func NewAttentionTower(cfg Config) (*AttentionTower, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	posEmb := tensor.New([]int{cfg.DModel, cfg.BoardSize, cfg.BoardSize})
	tensor.FillNormal(posEmb, 0, 1)

	encoders := make([]*EncoderLayer, cfg.Depth)
	for i := range encoders {
		encoders[i] = NewEncoderLayer(cfg)
	}

	return &AttentionTower{
		Config:   cfg,
		Expand:   NewConv1x1(cfg.InputChannels, cfg.DModel),
		PosEmb:   posEmb,
		Encoders: encoders,
	}, nil
}

// Forward maps a (batch, InputChannels, BoardSize, BoardSize) board
// tensor to (batch, DModel, BoardSize, BoardSize). The spatial axes are
// flattened row-major into a sequence around the encoder stack and
// restored afterwards.
func (t *AttentionTower) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.NumDims() != 4 {
		return nil, fmt.Errorf("tower: expected 4D board input, got shape %v", x.Shape)
	}
	size := t.Config.BoardSize
	if x.Shape[2] != size || x.Shape[3] != size {
		return nil, fmt.Errorf("tower: board is %dx%d, want %dx%d", x.Shape[2], x.Shape[3], size, size)
	}

	expanded, err := t.Expand.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("failed channel expansion: %w", err)
	}

	embedded, err := tensor.Add(expanded, t.PosEmb)
	if err != nil {
		return nil, fmt.Errorf("failed to add positional embedding: %w", err)
	}

	curr, err := SpatialToSequence(embedded)
	if err != nil {
		return nil, err
	}

	for i, encoder := range t.Encoders {
		curr, err = encoder.Forward(curr)
		if err != nil {
			return nil, fmt.Errorf("failed in encoder layer %d: %w", i, err)
		}
	}

	return SequenceToSpatial(curr, size, size)
}

// Parameters returns every parameter of the tower: the expansion
// projection, the positional embedding and all encoder layers.
func (t *AttentionTower) Parameters() []*tensor.Tensor {
	params := t.Expand.Parameters()
	params = append(params, t.PosEmb)
	for _, encoder := range t.Encoders {
		params = append(params, encoder.Parameters()...)
	}
	return params
}

// SetTraining switches dropout on or off for the whole stack.
func (t *AttentionTower) SetTraining(training bool) {
	t.Training = training
	for _, encoder := range t.Encoders {
		encoder.Training = training
	}
}

// SpatialToSequence reorders (batch, channels, height, width) into
// sequence form (batch, height*width, channels). Cells are flattened
// row-major: height first, then width.
func SpatialToSequence(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.NumDims() != 4 {
		return nil, fmt.Errorf("expected 4D spatial tensor, got shape %v", x.Shape)
	}

	batch, channels, height, width := x.Shape[0], x.Shape[1], x.Shape[2], x.Shape[3]
	plane := height * width
	out := tensor.New([]int{batch, plane, channels})

	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {
			for p := 0; p < plane; p++ {
				out.Data[(b*plane+p)*channels+c] = x.Data[(b*channels+c)*plane+p]
			}
		}
	}
	return out, nil
}

// SequenceToSpatial is the exact inverse of SpatialToSequence, mapping
// (batch, height*width, channels) back to (batch, channels, height,
// width).
func SequenceToSpatial(x *tensor.Tensor, height, width int) (*tensor.Tensor, error) {
	if x.NumDims() != 3 {
		return nil, fmt.Errorf("expected 3D sequence tensor, got shape %v", x.Shape)
	}
	plane := height * width
	if x.Shape[1] != plane {
		return nil, fmt.Errorf("sequence length %d does not match %dx%d board", x.Shape[1], height, width)
	}

	batch, channels := x.Shape[0], x.Shape[2]
	out := tensor.New([]int{batch, channels, height, width})

	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {
			for p := 0; p < plane; p++ {
				out.Data[(b*channels+c)*plane+p] = x.Data[(b*plane+p)*channels+c]
			}
		}
	}
	return out, nil
}
