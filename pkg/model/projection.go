package model

import (
	"fmt"

	"github.com/andreaslam/kZero/pkg/tensor"
)

// Conv1x1 is a pointwise convolution over spatial tensors: the same
// linear map across channels applied at every board cell. It implements
// the tower's channel-expansion projection.
type Conv1x1 struct {
	InChannels  int
	OutChannels int
	Weight      *tensor.Tensor // (out, in)
	Bias        *tensor.Tensor // (out,)
}

// NewConv1x1 creates a pointwise convolution with Xavier-uniform
// weights and zero bias.
func NewConv1x1(in, out int) *Conv1x1 {
	weight := tensor.New([]int{out, in})
	tensor.XavierUniform(weight, 1)
	return &Conv1x1{
		InChannels:  in,
		OutChannels: out,
		Weight:      weight,
		Bias:        tensor.New([]int{out}),
	}
}

// Forward maps (batch, in, height, width) to (batch, out, height, width).
func (c *Conv1x1) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.NumDims() != 4 {
		return nil, fmt.Errorf("conv1x1: expected 4D spatial input, got shape %v", x.Shape)
	}
	if x.Shape[1] != c.InChannels {
		return nil, fmt.Errorf("conv1x1: input has %d channels, want %d", x.Shape[1], c.InChannels)
	}

	batch, height, width := x.Shape[0], x.Shape[2], x.Shape[3]
	plane := height * width
	out := tensor.New([]int{batch, c.OutChannels, height, width})

	for b := 0; b < batch; b++ {
		for o := 0; o < c.OutChannels; o++ {
			dst := out.Data[(b*c.OutChannels+o)*plane : (b*c.OutChannels+o+1)*plane]
			for p := range dst {
				dst[p] = c.Bias.Data[o]
			}
			for ci := 0; ci < c.InChannels; ci++ {
				w := c.Weight.Data[o*c.InChannels+ci]
				src := x.Data[(b*c.InChannels+ci)*plane : (b*c.InChannels+ci+1)*plane]
				for p := range src {
					dst[p] += w * src[p]
				}
			}
		}
	}
	return out, nil
}

// Parameters returns the weight and bias.
func (c *Conv1x1) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{c.Weight, c.Bias}
}
