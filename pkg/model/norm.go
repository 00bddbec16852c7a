package model

import (
	"fmt"
	"math"

	"github.com/andreaslam/kZero/pkg/tensor"
)

// LayerNorm normalizes over the last (channel) axis and applies a
// learned scale and shift:
//
//	out = (x - mean) / sqrt(var + eps) * scale + shift
//
// Each position in the sequence is normalized independently.
type LayerNorm struct {
	Scale *tensor.Tensor // (dim,), initialized to ones
	Shift *tensor.Tensor // (dim,), initialized to zeros
	Eps   float32
}

// NewLayerNorm creates a LayerNorm over the given channel width.
func NewLayerNorm(dim int, eps float32) *LayerNorm {
	return &LayerNorm{
		Scale: tensor.Full([]int{dim}, 1),
		Shift: tensor.New([]int{dim}),
		Eps:   eps,
	}
}

// Forward applies the normalization. The input may have any rank as
// long as its last dimension matches the norm width.
func (ln *LayerNorm) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.NumDims() == 0 {
		return nil, fmt.Errorf("cannot normalize a scalar tensor")
	}
	dim := x.Shape[len(x.Shape)-1]
	if dim != len(ln.Scale.Data) {
		return nil, fmt.Errorf("input channel width %d does not match norm width %d", dim, len(ln.Scale.Data))
	}

	slices := x.Size() / dim
	out := tensor.New(x.Shape)
	for s := 0; s < slices; s++ {
		off := s * dim

		mean := float32(0)
		for i := 0; i < dim; i++ {
			mean += x.Data[off+i]
		}
		mean /= float32(dim)

		variance := float32(0)
		for i := 0; i < dim; i++ {
			d := x.Data[off+i] - mean
			variance += d * d
		}
		variance /= float32(dim)

		invStd := float32(1 / math.Sqrt(float64(variance+ln.Eps)))
		for i := 0; i < dim; i++ {
			out.Data[off+i] = (x.Data[off+i]-mean)*invStd*ln.Scale.Data[i] + ln.Shift.Data[i]
		}
	}
	return out, nil
}

// Parameters returns the learned scale and shift.
func (ln *LayerNorm) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{ln.Scale, ln.Shift}
}
